package domain

import (
	"fmt"

	"github.com/plugwise/p1-legacy/pkg/smile_p1"
)

// ConnectivityError reports a gateway that could not be reached or
// returned a document that could not be parsed.
type ConnectivityError struct {
	Host   string
	Module smile_p1.ModuleKind
	Err    error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("smile %s: fetch %s module: %v", e.Host, e.Module, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// FieldNotFoundError reports a field missing from the held snapshot,
// including the case where nothing has been fetched yet.
type FieldNotFoundError struct {
	Module smile_p1.ModuleKind
	Field  string
	Empty  bool
}

func (e *FieldNotFoundError) Error() string {
	if e.Empty {
		return fmt.Sprintf("field %s not found: no %s data fetched yet", e.Field, e.Module)
	}
	return fmt.Sprintf("field %s not found in %s module", e.Field, e.Module)
}
