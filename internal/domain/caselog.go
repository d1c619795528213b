package domain

import (
	"errors"
	"strings"
	"time"
)

// CaseLogRecord is one message in a case log
type CaseLogRecord struct {
	ID        int64
	ObjClass  string
	ObjKey    int64
	AttCode   string
	Message   string
	UserLogin string
	UserName  string
	Date      time.Time
}

// NewCaseLogRecord creates a record for a new message
func NewCaseLogRecord(ref ObjectRef, attCode, message, userLogin, userName string) *CaseLogRecord {
	return &CaseLogRecord{
		ObjClass:  ref.Class,
		ObjKey:    ref.ID,
		AttCode:   attCode,
		Message:   message,
		UserLogin: userLogin,
		UserName:  userName,
		Date:      time.Now(),
	}
}

// Validate returns an error if the record is invalid
func (r *CaseLogRecord) Validate() error {
	if r.AttCode == "" {
		return errors.New("case log attribute is required")
	}
	if strings.TrimSpace(r.Message) == "" {
		return errors.New("case log message cannot be empty")
	}
	if r.UserLogin == "" {
		return errors.New("case log author is required")
	}
	return nil
}
