package services

import "errors"

var (
	ErrLoadFailed        = errors.New("dataset could not be loaded")
	ErrDatasetNotFound   = errors.New("dataset not found")
	ErrEmptyFilterResult = errors.New("no records match the current filters")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrChartNotFound     = errors.New("chart not available")
)
