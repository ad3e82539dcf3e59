package repository

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/interfaces"
)

// Repository is the relational store used by every use case.
type Repository = interfaces.Repository

var (
	// ErrInvalidRecord is returned when a record is missing required fields.
	ErrInvalidRecord = goerr.New("invalid record")
)
