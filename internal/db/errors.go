package db

import "errors"

// ErrKeyNotFound is returned by single-key reads of a missing key.
var ErrKeyNotFound = errors.New("db: key not found")

// Command names recorded on Error.
const (
	OpDel      = "DEL"
	OpHGetAll  = "HGETALL"
	OpHSet     = "HSET"
	OpScan     = "SCAN"
	OpGet      = "GET"
	OpMGet     = "MGET"
	OpSet      = "SET"
	OpIncrBy   = "INCRBY"
	OpExpireNX = "EXPIRE NX"
)

// Error records which command failed and, for keyed commands, on which key.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Key + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
