package errors

import stdErrors "errors"

// DumpInfo is a flattened view of an error chain used for structured logging.
type DumpInfo struct {
	Code       Code
	TopMessage string
	Chain      []string
}

// Dump walks the error chain and collects each message so log lines keep the
// full causal path even after wrapping.
func Dump(err error) DumpInfo {
	info := DumpInfo{Code: CodeInternal}
	if err == nil {
		return info
	}
	info.TopMessage = err.Error()
	if typed := As(err); typed != nil {
		info.Code = typed.Code()
	}
	for cursor := err; cursor != nil; cursor = stdErrors.Unwrap(cursor) {
		info.Chain = append(info.Chain, cursor.Error())
	}
	return info
}
