// Package obslog provides a chainable structured-fields builder on top of
// logrus, so every component logs the same vocabulary (component,
// operation, resource, phase, workflow, duration, error) instead of ad-hoc
// key names.
package obslog

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Fields is a chainable logrus.Fields builder.
type Fields logrus.Fields

// NewFields returns an empty Fields builder.
func NewFields() Fields {
	return Fields{}
}

// Component sets the component field.
func (f Fields) Component(name string) Fields {
	f["component"] = name
	return f
}

// Operation sets the operation field.
func (f Fields) Operation(name string) Fields {
	f["operation"] = name
	return f
}

// Resource sets resource_type and, if non-empty, resource_name.
func (f Fields) Resource(resourceType, resourceName string) Fields {
	f["resource_type"] = resourceType
	if resourceName != "" {
		f["resource_name"] = resourceName
	}
	return f
}

// Workflow sets the workflow_id field.
func (f Fields) Workflow(workflowID string) Fields {
	f["workflow_id"] = workflowID
	return f
}

// Phase sets the phase_id field.
func (f Fields) Phase(phaseID string) Fields {
	f["phase_id"] = phaseID
	return f
}

// Adapter sets the adapter field.
func (f Fields) Adapter(adapterID string) Fields {
	f["adapter"] = adapterID
	return f
}

// Attempt sets the attempt field.
func (f Fields) Attempt(attempt int) Fields {
	f["attempt"] = attempt
	return f
}

// Duration sets duration_ms from a time.Duration.
func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

// Error sets the error field if err is non-nil; no-op otherwise so callers
// can chain unconditionally.
func (f Fields) Error(err error) Fields {
	if err != nil {
		f["error"] = err.Error()
	}
	return f
}

// Logrus converts Fields to logrus.Fields for use with a *logrus.Logger or
// *logrus.Entry.
func (f Fields) Logrus() logrus.Fields {
	return logrus.Fields(f)
}
