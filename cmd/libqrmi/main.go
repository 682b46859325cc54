// libqrmi exposes the resource API as a C shared library:
//
//	go build -buildmode=c-shared -o libqrmi.so ./cmd/libqrmi
//
// Every entrypoint returns a QrmiReturnCode. Strings written to out
// parameters are owned by the caller and must be released with
// qrmi_string_free. Log verbosity follows QRMI_LOG, then RUST_LOG.
package main

/*
#include <stdint.h>
#include <stdlib.h>

typedef uint64_t QrmiResourceHandle;
typedef int32_t QrmiReturnCode;

enum {
	QRMI_PAYLOAD_QISKIT_PRIMITIVE = 0,
	QRMI_PAYLOAD_PASQAL_CLOUD = 1,
	QRMI_PAYLOAD_IONQ_CLOUD = 2,
	QRMI_PAYLOAD_CIRCUIT = 3,
};

typedef struct {
	int32_t tag;
	const char *circuit;
	const char *input;
	const char *program_id;
	const char *sequence;
	int32_t job_runs;
	const char *target;
	int32_t shots;
} QrmiPayload;
*/
import "C"

import (
	"context"
	"os"
	"unsafe"

	glog "github.com/goliatone/go-logger/glog"

	qrmi "github.com/goliatone/go-qrmi"
	"github.com/goliatone/go-qrmi/adapters/gologger"
	"github.com/goliatone/go-qrmi/capi"
	"github.com/goliatone/go-qrmi/core"
)

var (
	loggers = glog.NewLogger(
		glog.WithWriter(os.Stderr),
		glog.WithLevel(gologger.LevelFromEnv(os.LookupEnv)),
		glog.WithLoggerTypeConsole(),
	)
	table = capi.NewTable(
		capi.WithLogger(loggers.GetLogger("qrmi.capi")),
		capi.WithFacadeOptions(qrmi.WithFacadeLoggerProvider(loggers)),
	)
)

func main() {}

func code(c capi.ResultCode) C.QrmiReturnCode {
	return C.QrmiReturnCode(c)
}

func goString(value *C.char) string {
	if value == nil {
		return ""
	}
	return C.GoString(value)
}

func setString(out **C.char, value string) {
	if out != nil {
		*out = C.CString(value)
	}
}

func payloadKind(tag C.int32_t) core.PayloadKind {
	switch tag {
	case C.QRMI_PAYLOAD_QISKIT_PRIMITIVE:
		return core.PayloadKindQiskitPrimitive
	case C.QRMI_PAYLOAD_PASQAL_CLOUD:
		return core.PayloadKindPasqalCloud
	case C.QRMI_PAYLOAD_IONQ_CLOUD:
		return core.PayloadKindIonQCloud
	case C.QRMI_PAYLOAD_CIRCUIT:
		return core.PayloadKindCircuit
	default:
		return ""
	}
}

//export qrmi_resource_new
func qrmi_resource_new(name *C.char, resourceType *C.char, out *C.QrmiResourceHandle) C.QrmiReturnCode {
	if out == nil {
		return code(capi.CodeBadInput)
	}
	handle, rc := table.New(context.Background(), goString(name), goString(resourceType))
	if rc == capi.CodeSuccess {
		*out = C.QrmiResourceHandle(handle)
	}
	return code(rc)
}

//export qrmi_resource_free
func qrmi_resource_free(handle C.QrmiResourceHandle) C.QrmiReturnCode {
	return code(table.Free(context.Background(), capi.Handle(handle)))
}

//export qrmi_resource_is_accessible
func qrmi_resource_is_accessible(handle C.QrmiResourceHandle, out *C.int32_t) C.QrmiReturnCode {
	accessible, rc := table.IsAccessible(context.Background(), capi.Handle(handle))
	if rc == capi.CodeSuccess && out != nil {
		*out = 0
		if accessible {
			*out = 1
		}
	}
	return code(rc)
}

//export qrmi_resource_acquire
func qrmi_resource_acquire(handle C.QrmiResourceHandle, out **C.char) C.QrmiReturnCode {
	token, rc := table.Acquire(context.Background(), capi.Handle(handle))
	if rc == capi.CodeSuccess {
		setString(out, token)
	}
	return code(rc)
}

//export qrmi_resource_release
func qrmi_resource_release(handle C.QrmiResourceHandle, token *C.char) C.QrmiReturnCode {
	return code(table.Release(context.Background(), capi.Handle(handle), goString(token)))
}

//export qrmi_resource_target
func qrmi_resource_target(handle C.QrmiResourceHandle, out **C.char) C.QrmiReturnCode {
	target, rc := table.Target(context.Background(), capi.Handle(handle))
	if rc == capi.CodeSuccess {
		setString(out, target)
	}
	return code(rc)
}

//export qrmi_resource_task_start
func qrmi_resource_task_start(handle C.QrmiResourceHandle, payload C.QrmiPayload, out **C.char) C.QrmiReturnCode {
	jobID, rc := table.TaskStart(context.Background(), capi.Handle(handle), capi.Payload{
		Kind:      payloadKind(payload.tag),
		Circuit:   goString(payload.circuit),
		Input:     goString(payload.input),
		ProgramID: goString(payload.program_id),
		Sequence:  goString(payload.sequence),
		JobRuns:   int(payload.job_runs),
		Target:    goString(payload.target),
		Shots:     int(payload.shots),
	})
	if rc == capi.CodeSuccess {
		setString(out, jobID)
	}
	return code(rc)
}

//export qrmi_resource_task_status
func qrmi_resource_task_status(handle C.QrmiResourceHandle, jobID *C.char, out **C.char) C.QrmiReturnCode {
	status, rc := table.TaskStatus(context.Background(), capi.Handle(handle), goString(jobID))
	if rc == capi.CodeSuccess {
		setString(out, status)
	}
	return code(rc)
}

//export qrmi_resource_task_stop
func qrmi_resource_task_stop(handle C.QrmiResourceHandle, jobID *C.char) C.QrmiReturnCode {
	return code(table.TaskStop(context.Background(), capi.Handle(handle), goString(jobID)))
}

//export qrmi_resource_task_result
func qrmi_resource_task_result(handle C.QrmiResourceHandle, jobID *C.char, out **C.char) C.QrmiReturnCode {
	result, rc := table.TaskResult(context.Background(), capi.Handle(handle), goString(jobID))
	if rc == capi.CodeSuccess {
		setString(out, result)
	}
	return code(rc)
}

//export qrmi_resource_task_logs
func qrmi_resource_task_logs(handle C.QrmiResourceHandle, jobID *C.char, out **C.char) C.QrmiReturnCode {
	logs, rc := table.TaskLogs(context.Background(), capi.Handle(handle), goString(jobID))
	if rc == capi.CodeSuccess {
		setString(out, logs)
	}
	return code(rc)
}

// qrmi_last_error returns a new string the caller frees; handle 0 reads the
// library-wide last error.
//
//export qrmi_last_error
func qrmi_last_error(handle C.QrmiResourceHandle) *C.char {
	return C.CString(table.LastError(capi.Handle(handle)))
}

//export qrmi_string_free
func qrmi_string_free(value *C.char) {
	if value != nil {
		C.free(unsafe.Pointer(value))
	}
}
