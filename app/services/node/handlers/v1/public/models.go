package public

import (
	"github.com/campusledger/blockchain/foundation/blockchain/database"
)

type tx struct {
	database.Tx
	Status     string  `json:"status"`
	BlockIndex *uint64 `json:"blockIndex,omitempty"`
}

type proof struct {
	TxID       string   `json:"txId"`
	BlockIndex uint64   `json:"blockIndex"`
	TransRoot  string   `json:"transRoot"`
	Hashes     []string `json:"hashes"`
	Order      []int64  `json:"order"`
}

type addressBalance struct {
	Address   string `json:"address"`
	Name      string `json:"name"`
	Confirmed uint64 `json:"confirmed"`
	Spendable uint64 `json:"spendable"`
}

type account struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Balance uint64 `json:"balance"`
}

type actInfo struct {
	LatestBlock string    `json:"latestBlock"`
	Pending     int       `json:"pending"`
	Accounts    []account `json:"accounts"`
}

type registration struct {
	Recipient      string `json:"recipient" validate:"required,hexadecimal"`
	StudentID      string `json:"studentId" validate:"required"`
	StudentAddress string `json:"studentAddress" validate:"required,hexadecimal"`
	ClassID        string `json:"classId" validate:"required"`
	RecordedAt     int64  `json:"recordedAt"`
}

type attendance struct {
	Recipient      string `json:"recipient" validate:"required,hexadecimal"`
	StudentID      string `json:"studentId" validate:"required"`
	StudentAddress string `json:"studentAddress" validate:"required,hexadecimal"`
	CourseID       string `json:"courseId" validate:"required"`
	ClassID        string `json:"classId" validate:"required"`
	RecordedAt     int64  `json:"recordedAt"`
}

type connect struct {
	URL string `json:"url" validate:"required,url"`
}
