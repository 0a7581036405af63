package domain

import "strings"

// Role represents user role in the system
type Role string

const (
	RoleUser      Role = "USER"
	RoleLibrarian Role = "LIBRARIAN"
	RoleAdmin     Role = "ADMIN"
)

// ValidRole reports whether the role is one of the known role tiers
func ValidRole(role string) bool {
	switch Role(role) {
	case RoleUser, RoleLibrarian, RoleAdmin:
		return true
	}
	return false
}

// IsPrivileged reports whether the role may manage the catalog and loans
func (r Role) IsPrivileged() bool {
	return r == RoleLibrarian || r == RoleAdmin
}

// LoanStatus represents the lifecycle state of a loan
type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "ACTIVE"
	LoanStatusReturned LoanStatus = "RETURNED"
	LoanStatusOverdue  LoanStatus = "OVERDUE"
	LoanStatusLost     LoanStatus = "LOST"
)

// ValidLoanStatus reports whether the status is a known loan state
func ValidLoanStatus(status string) bool {
	switch LoanStatus(status) {
	case LoanStatusActive, LoanStatusReturned, LoanStatusOverdue, LoanStatusLost:
		return true
	}
	return false
}

// IsOutstanding reports whether a loan in this state still holds a copy
func (s LoanStatus) IsOutstanding() bool {
	return s == LoanStatusActive || s == LoanStatusOverdue
}

// Loan lifecycle limits
const (
	MaxLoanDays           = 30
	DefaultLoanDays       = 14
	MaxActiveLoansPerUser = 5
)

// LogLevel represents the severity of an audit log entry
type LogLevel string

const (
	LogLevelTrace       LogLevel = "TRACE"
	LogLevelDebug       LogLevel = "DEBUG"
	LogLevelInformation LogLevel = "INFORMATION"
	LogLevelWarning     LogLevel = "WARNING"
	LogLevelError       LogLevel = "ERROR"
	LogLevelCritical    LogLevel = "CRITICAL"
)

// NormalizeLogLevel maps a level name onto a known level, case-insensitively.
// Unknown names fall back to DEBUG.
func NormalizeLogLevel(name string) LogLevel {
	level := LogLevel(strings.ToUpper(strings.TrimSpace(name)))
	switch level {
	case LogLevelTrace, LogLevelDebug, LogLevelInformation, LogLevelWarning, LogLevelError, LogLevelCritical:
		return level
	}
	return LogLevelDebug
}
