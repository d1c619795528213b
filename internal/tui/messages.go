package tui

import "github.com/andy/casetrail/internal/domain"

// SwitchScreenMsg requests a screen change
type SwitchScreenMsg struct {
	Screen Screen
}

// OpenActivityMsg opens the activity panel of an object
type OpenActivityMsg struct {
	Ref domain.ObjectRef
}

// RefreshDataMsg requests data refresh
type RefreshDataMsg struct{}

// ErrorMsg carries error information
type ErrorMsg struct {
	Err error
}
