package identity

import (
	"fmt"
	"strconv"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
)

// BuildTransaction spends outputs owned by the wallet to pay amount to the
// recipient. Outputs are used in the order given until the amount is
// covered; any remainder is paid back to the change address.
func (w *Wallet) BuildTransaction(utxos []database.UTXO, to string, amount uint64, change string) (database.Tx, error) {
	if amount == 0 {
		return database.Tx{}, fmt.Errorf("%w: amount must be greater than zero", database.ErrStructural)
	}

	if to == "" || change == "" {
		return database.Tx{}, fmt.Errorf("%w: recipient and change address are required", database.ErrStructural)
	}

	var inputs []database.TxInput
	var total uint64
	for _, utxo := range utxos {
		if total >= amount {
			break
		}

		if _, err := w.SecretKeyFor(utxo.Address); err != nil {
			continue
		}

		inputs = append(inputs, utxo.Input())
		total += utxo.Amount
	}

	if total < amount {
		return database.Tx{}, fmt.Errorf("%w: not enough funds, have %d, need %d", database.ErrBalance, total, amount)
	}

	outputs := []database.TxOutput{{Amount: amount, Address: to}}
	if total > amount {
		outputs = append(outputs, database.TxOutput{Amount: total - amount, Address: change})
	}

	return database.NewTx(database.TxRegular, inputs, outputs).Sign(w.SecretKeyFor)
}

// =============================================================================

// Registration is the record of a student registering for a class.
type Registration struct {
	StudentID      string
	StudentAddress string
	ClassID        string
	RecordedAt     int64
}

// NewRegistration constructs a finalized registration transaction addressed
// to the recipient, usually the teacher of the class.
func NewRegistration(recipient string, r Registration) database.Tx {
	out := database.TxOutput{
		Amount:  1,
		Address: recipient,
		Metadata: map[string]string{
			database.MetaStudentID:      r.StudentID,
			database.MetaStudentAddress: r.StudentAddress,
			database.MetaClassID:        r.ClassID,
			database.MetaRecordedAt:     strconv.FormatInt(r.RecordedAt, 10),
		},
	}

	return database.NewTx(database.TxRegistration, nil, []database.TxOutput{out}).Finalize()
}

// Attendance is the record of a student attending a course given to a
// class.
type Attendance struct {
	StudentID      string
	StudentAddress string
	CourseID       string
	ClassID        string
	RecordedAt     int64
}

// NewAttendance constructs a finalized attendance transaction addressed to
// the recipient.
func NewAttendance(recipient string, a Attendance) database.Tx {
	out := database.TxOutput{
		Amount:  1,
		Address: recipient,
		Metadata: map[string]string{
			database.MetaStudentID:      a.StudentID,
			database.MetaStudentAddress: a.StudentAddress,
			database.MetaCourseID:       a.CourseID,
			database.MetaClassID:        a.ClassID,
			database.MetaRecordedAt:     strconv.FormatInt(a.RecordedAt, 10),
		},
	}

	return database.NewTx(database.TxAttendance, nil, []database.TxOutput{out}).Finalize()
}
