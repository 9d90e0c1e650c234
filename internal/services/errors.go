package services

import (
	"errors"

	"stephly/internal/store"
)

var (
	ErrTodoAlreadyCompleted = store.ErrAlreadyCompleted
	// ErrPartialCompletion means the expense for a todo was recorded but the
	// todo could not be marked completed.
	ErrPartialCompletion = errors.New("todo completion partially applied")
)
