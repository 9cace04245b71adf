package repository

import (
	"errors"

	"github.com/okian/learnstyle/internal/domain/model"
)

// Sentinel kinds for store errors.
var (
	ErrNotFound      = model.ErrNotFound
	ErrAlreadyExists = errors.New("record already exists")
)
