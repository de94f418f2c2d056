// Package records maintains an index of the registration and attendance
// records confirmed on the chain. Like the balance sheet it is a projection
// fed by ledger notifications.
package records

import (
	"sort"
	"strconv"
	"sync"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
)

// Record is a confirmed registration or attendance.
type Record struct {
	TxID           string          `json:"txId"`
	BlockIndex     uint64          `json:"blockIndex"`
	Type           database.TxType `json:"type"`
	Recipient      string          `json:"recipient"`
	StudentID      string          `json:"studentId"`
	StudentAddress string          `json:"studentAddress"`
	ClassID        string          `json:"classId,omitempty"`
	CourseID       string          `json:"courseId,omitempty"`
	RecordedAt     int64           `json:"recordedAt"`
}

// Index holds the confirmed records.
type Index struct {
	mu      sync.RWMutex
	records []Record
	next    uint64
}

// New constructs an index for the specified chain.
func New(chain []database.Block) *Index {
	var idx Index
	idx.Rebuild(chain)

	return &idx
}

// Rebuild resets the index to the records in the chain. A chain shorter than
// the one already applied is ignored.
func (idx *Index) Rebuild(chain []database.Block) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if uint64(len(chain)) < idx.next {
		return
	}

	idx.records = nil
	idx.next = 0

	for _, block := range chain {
		idx.apply(block)
	}
}

// Filter narrows attendance queries. Empty ids match every record and a zero
// bound leaves that side of the time range open. From and To are inclusive
// and compared to RecordedAt.
type Filter struct {
	StudentID string
	CourseID  string
	ClassID   string
	From      int64
	To        int64
}

func (f Filter) match(r Record) bool {
	switch {
	case f.StudentID != "" && r.StudentID != f.StudentID:
		return false
	case f.CourseID != "" && r.CourseID != f.CourseID:
		return false
	case f.ClassID != "" && r.ClassID != f.ClassID:
		return false
	case f.From != 0 && r.RecordedAt < f.From:
		return false
	case f.To != 0 && r.RecordedAt > f.To:
		return false
	}
	return true
}

// Registrations returns the registrations of the student.
func (idx *Index) Registrations(studentAddress string) []Record {
	return idx.filter(func(r Record) bool {
		return r.Type == database.TxRegistration && r.StudentAddress == studentAddress
	})
}

// Attendance returns the attendance of the student that passes the filter.
func (idx *Index) Attendance(studentAddress string, f Filter) []Record {
	return idx.filter(func(r Record) bool {
		return r.Type == database.TxAttendance && r.StudentAddress == studentAddress && f.match(r)
	})
}

// ByCourse returns the attendance recorded for the course that passes the
// filter.
func (idx *Index) ByCourse(courseID string, f Filter) []Record {
	return idx.filter(func(r Record) bool {
		return r.Type == database.TxAttendance && r.CourseID == courseID && f.match(r)
	})
}

// ByClass returns the attendance recorded for the class that passes the
// filter.
func (idx *Index) ByClass(classID string, f Filter) []Record {
	return idx.filter(func(r Record) bool {
		return r.Type == database.TxAttendance && r.ClassID == classID && f.match(r)
	})
}

// Received returns every record addressed to the recipient.
func (idx *Index) Received(recipient string) []Record {
	return idx.filter(func(r Record) bool {
		return r.Recipient == recipient
	})
}

// =============================================================================
// These methods implement the state.Observer interface.

// BlockAdded indexes the records in the block.
func (idx *Index) BlockAdded(block database.Block) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.apply(block)
}

// TransactionAdded has nothing to do since only confirmed records count.
func (idx *Index) TransactionAdded(tx database.Tx) {}

// ChainReplaced rebuilds the index from the new chain.
func (idx *Index) ChainReplaced(chain []database.Block) {
	idx.Rebuild(chain)
}

// =============================================================================

func (idx *Index) apply(block database.Block) {
	if block.Index != idx.next {
		return
	}
	idx.next++

	for _, tx := range block.Transactions {
		if !tx.Type.IsPayload() {
			continue
		}

		for _, out := range tx.Outputs {
			recordedAt, _ := strconv.ParseInt(out.Metadata[database.MetaRecordedAt], 10, 64)

			idx.records = append(idx.records, Record{
				TxID:           tx.ID,
				BlockIndex:     block.Index,
				Type:           tx.Type,
				Recipient:      out.Address,
				StudentID:      out.Metadata[database.MetaStudentID],
				StudentAddress: out.Metadata[database.MetaStudentAddress],
				ClassID:        out.Metadata[database.MetaClassID],
				CourseID:       out.Metadata[database.MetaCourseID],
				RecordedAt:     recordedAt,
			})
		}
	}
}

func (idx *Index) filter(match func(r Record) bool) []Record {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []Record
	for _, r := range idx.records {
		if match(r) {
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt < out[j].RecordedAt
	})

	return out
}
