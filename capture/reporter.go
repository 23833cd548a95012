// Package capture turns Go errors, panics and failed HTTP calls into error
// records and delivers them to a record store.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"reflect"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
	"unicode"

	"github.com/kate8382/error-logger-viewer/core"
	"github.com/kate8382/error-logger-viewer/models"
)

// Record types produced by this package besides error type names.
const (
	TypeUnhandledPanic = "UnhandledPanic"
	TypeFetchError     = "FetchError"
	TypeGeneric        = "Error"
)

// Sink stores records. *errorapi.API and *service.RecordService satisfy it.
type Sink interface {
	Create(ctx context.Context, draft models.ErrorRecord) (models.ErrorRecord, error)
}

// Reporter sends captured errors to a Sink. Records the sink rejects are kept
// in a bounded pending buffer until Flush.
type Reporter struct {
	sink    Sink
	pending *Pending
	now     func() time.Time
}

// NewReporter creates a Reporter buffering undelivered records in pending.
// A nil pending gets an in-memory buffer of 100 records.
func NewReporter(sink Sink, pending *Pending) *Reporter {
	if pending == nil {
		pending = NewPending(100)
	}
	return &Reporter{
		sink:    sink,
		pending: pending,
		now:     time.Now,
	}
}

// Report records err with its type name, message and the caller's stack.
func (r *Reporter) Report(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	rec := r.newRecord(TypeName(err), err.Error())
	_ = rec.SetExtra("stack", stackTrace(1))
	_, err = r.Submit(ctx, rec)
	return err
}

// Recover records a panic and panics again. Use it as `defer r.Recover(ctx)`.
func (r *Reporter) Recover(ctx context.Context) {
	v := recover()
	if v == nil {
		return
	}

	msg := fmt.Sprint(v)
	if err, ok := v.(error); ok {
		msg = err.Error()
	}
	rec := r.newRecord(TypeUnhandledPanic, msg)
	_ = rec.SetExtra("stack", string(debug.Stack()))
	if _, err := r.Submit(ctx, rec); err != nil {
		log.Printf("[capture] panic not delivered: %v", err)
	}
	panic(v)
}

// Submit delivers rec and returns the stored record. When the sink fails for
// any reason other than validation, rec is buffered for a later Flush.
func (r *Reporter) Submit(ctx context.Context, rec models.ErrorRecord) (models.ErrorRecord, error) {
	created, err := r.sink.Create(ctx, rec)
	if err != nil {
		if !errors.Is(err, core.ErrValidation) {
			r.pending.Add(rec)
		}
		return models.ErrorRecord{}, fmt.Errorf("deliver %s record: %w", rec.Type, err)
	}
	return created, nil
}

// Flush re-sends pending records oldest first. It stops at the first failure
// and keeps that record and the rest for a later Flush. Records the sink
// rejects as invalid are dropped.
func (r *Reporter) Flush(ctx context.Context) (sent int, err error) {
	for {
		rec, ok := r.pending.Peek()
		if !ok {
			return sent, nil
		}
		if _, err := r.sink.Create(ctx, rec); err != nil {
			if !errors.Is(err, core.ErrValidation) {
				return sent, fmt.Errorf("flush pending records: %w", err)
			}
			log.Printf("[capture] dropping invalid pending record: %v", err)
		} else {
			sent++
		}
		r.pending.Pop()
	}
}

// Pending exposes the undelivered records.
func (r *Reporter) Pending() *Pending {
	return r.pending
}

func (r *Reporter) newRecord(typ, msg string) models.ErrorRecord {
	return models.ErrorRecord{
		Type:      typ,
		Message:   msg,
		Timestamp: r.now().UTC().Format(time.RFC3339Nano),
		Status:    models.StatusNew,
	}
}

// TypeName names err by its concrete Go type, looking through wrapping done
// with fmt.Errorf. Unexported types such as the one behind errors.New are
// reported as "Error".
func TypeName(err error) string {
	for err != nil {
		t := reflect.TypeOf(err)
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		name := t.Name()
		if name != "" && unicode.IsUpper([]rune(name)[0]) {
			return name
		}
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	return TypeGeneric
}

// stackTrace formats up to ten frames, starting skip frames above its caller.
func stackTrace(skip int) string {
	const maxDepth = 10
	var b strings.Builder

	for i := skip + 1; i < skip+1+maxDepth; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		funcName := "unknown"
		if fn := runtime.FuncForPC(pc); fn != nil {
			funcName = fn.Name()
		}
		fmt.Fprintf(&b, "%s:%d %s\n", file, line, funcName)
	}

	return b.String()
}
