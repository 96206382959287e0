package entity

import "errors"

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrInvalidTaskData  = errors.New("invalid task data")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrInvalidAuditData = errors.New("invalid audit message")
)
