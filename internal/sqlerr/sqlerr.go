// Package sqlerr turns database errors, including chains of preceding
// server messages, into an ordered, caller-presentable map.
package sqlerr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/rs/zerolog"
	"modernc.org/sqlite"
)

// Error codes used for errors that carry no server code of their own.
const (
	CodeRequest    = "EREQUEST"
	CodeConnection = "ECONNECTION"
	CodeTimeout    = "ETIMEOUT"
	CodeCancel     = "ECANCEL"
	CodeUnknown    = "UNKNOWN"
)

// Entry is one normalized error message.
type Entry struct {
	Code    string `json:"code"`
	Number  int32  `json:"number,omitempty"`
	Message string `json:"message"`
	Line    *int   `json:"line"`
}

// Messages is the ordered list of entries. It marshals as a JSON object
// keyed message-01, message-02, ... in order.
type Messages []Entry

// Coder is implemented by errors that know their own normalized code.
type Coder interface {
	ErrorCode() string
}

// Preceder is implemented by errors that carry the messages the server
// raised before the final one.
type Preceder interface {
	PrecedingErrors() []error
}

// Normalize flattens err into Messages: preceding causes first in chain
// order, then the top-level error when it has a message. A nil error, or
// one with no message and no causes, yields an empty (non-nil) list.
func Normalize(err error) Messages {
	out := Messages{}
	if err == nil {
		return out
	}

	// Errors that classify themselves, such as connection failures, are
	// reported as a single entry even when a server error is wrapped.
	var c Coder
	if errors.As(err, &c) {
		return appendTop(out, Entry{Code: c.ErrorCode(), Message: err.Error()})
	}

	if me, ok := asMSSQL(err); ok {
		if n := len(me.All); n > 1 {
			for _, e := range me.All[:n-1] {
				out = append(out, mssqlEntry(e))
			}
		}
		return appendTop(out, mssqlEntry(me))
	}

	var p Preceder
	if errors.As(err, &p) {
		for _, e := range p.PrecedingErrors() {
			if e != nil {
				out = append(out, classify(e))
			}
		}
		return appendTop(out, classify(err))
	}

	if members := joined(err); len(members) > 1 {
		for _, e := range members[:len(members)-1] {
			out = append(out, classify(e))
		}
		return appendTop(out, classify(members[len(members)-1]))
	}

	return appendTop(out, classify(err))
}

func appendTop(out Messages, top Entry) Messages {
	if top.Message == "" {
		return out
	}
	return append(out, top)
}

// Key returns the map key for the i-th (0-based) entry. Numbers are padded
// to two digits; the hundredth entry and later use their natural width.
func (m Messages) Key(i int) string {
	return fmt.Sprintf("message-%02d", i+1)
}

// MarshalJSON writes the entries as an object in order.
func (m Messages) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(m.Key(i))
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalZerologObject lets Messages be logged with zerolog's Object.
func (m Messages) MarshalZerologObject(ev *zerolog.Event) {
	for i, e := range m {
		d := zerolog.Dict().Str("code", e.Code).Str("message", e.Message)
		if e.Number != 0 {
			d = d.Int32("number", e.Number)
		}
		if e.Line != nil {
			d = d.Int("line", *e.Line)
		}
		ev.Dict(m.Key(i), d)
	}
}

func asMSSQL(err error) (mssql.Error, bool) {
	var me mssql.Error
	if errors.As(err, &me) {
		return me, true
	}
	var pme *mssql.Error
	if errors.As(err, &pme) && pme != nil {
		return *pme, true
	}
	return mssql.Error{}, false
}

func mssqlEntry(e mssql.Error) Entry {
	ent := Entry{Code: CodeRequest, Number: e.Number, Message: e.Message}
	if e.LineNo > 0 {
		line := int(e.LineNo)
		ent.Line = &line
	}
	return ent
}

// classify maps a single error onto its code and message.
func classify(err error) Entry {
	var c Coder
	if errors.As(err, &c) {
		return Entry{Code: c.ErrorCode(), Message: err.Error()}
	}

	if me, ok := asMSSQL(err); ok {
		return mssqlEntry(me)
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		return Entry{Code: sqliteCodeName(se.Code()), Message: se.Error()}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Entry{Code: CodeTimeout, Message: err.Error()}
	case errors.Is(err, context.Canceled):
		return Entry{Code: CodeCancel, Message: err.Error()}
	}

	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return Entry{Code: CodeTimeout, Message: err.Error()}
		}
		return Entry{Code: CodeConnection, Message: err.Error()}
	}

	return Entry{Code: CodeUnknown, Message: err.Error()}
}

// joined returns the members of the first errors.Join found in the chain.
func joined(err error) []error {
	for err != nil {
		if j, ok := err.(interface{ Unwrap() []error }); ok {
			return j.Unwrap()
		}
		err = errors.Unwrap(err)
	}
	return nil
}
