package capi

import (
	"github.com/goliatone/go-qrmi/core"
)

// ResultCode is the integer status every exported entrypoint returns.
type ResultCode int32

const (
	CodeSuccess ResultCode = iota
	CodeCredentialsMissing
	CodeAuthRejected
	CodeAuthExpired
	CodeResourceUnavailable
	CodeResourceNotFound
	CodeInvalidLock
	CodeTransport
	CodeResultNotReady
	CodeJobNotCancellable
	CodeJobFailed
	CodeUnsupportedOperation
	CodeBadInput
	CodeInternal
)

var codeNames = map[ResultCode]string{
	CodeSuccess:              "QRMI_SUCCESS",
	CodeCredentialsMissing:   core.ErrorCredentialsMissing,
	CodeAuthRejected:         core.ErrorAuthRejected,
	CodeAuthExpired:          core.ErrorAuthExpired,
	CodeResourceUnavailable:  core.ErrorResourceUnavailable,
	CodeResourceNotFound:     core.ErrorResourceNotFound,
	CodeInvalidLock:          core.ErrorInvalidLock,
	CodeTransport:            core.ErrorTransport,
	CodeResultNotReady:       core.ErrorResultNotReady,
	CodeJobNotCancellable:    core.ErrorJobNotCancellable,
	CodeJobFailed:            core.ErrorJobFailed,
	CodeUnsupportedOperation: core.ErrorUnsupportedOperation,
	CodeBadInput:             core.ErrorBadInput,
	CodeInternal:             core.ErrorInternal,
}

var codesByKind = func() map[string]ResultCode {
	out := make(map[string]ResultCode, len(codeNames))
	for code, name := range codeNames {
		out[name] = code
	}
	return out
}()

func (c ResultCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return core.ErrorInternal
}

// CodeFor maps err onto its result code. Errors outside the taxonomy are
// reported as CodeInternal.
func CodeFor(err error) ResultCode {
	if err == nil {
		return CodeSuccess
	}
	if code, ok := codesByKind[core.ErrorKind(err)]; ok && code != CodeSuccess {
		return code
	}
	return CodeInternal
}

// Codes lists every result code in numeric order.
func Codes() []ResultCode {
	out := make([]ResultCode, 0, len(codeNames))
	for code := CodeSuccess; code <= CodeInternal; code++ {
		out = append(out, code)
	}
	return out
}
