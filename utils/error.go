package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorVersionConflict is returned when an optimistic-concurrency check fails.
// Callers should re-read the record and retry.
var ErrorVersionConflict = errors.New("record was modified by another session, please retry")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
