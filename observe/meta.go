package observe

// OperationMeta identifies a governed remote operation for telemetry.
type OperationMeta struct {
	// ID is the caller-supplied operation ID used for retry bookkeeping.
	ID string
	// Resource is the remote resource family, e.g. "reports" (optional).
	Resource string
	// Name is the operation name, e.g. "render" (required).
	Name string
	// CacheKey is set when the run is cache-backed.
	CacheKey string
}

// SpanName returns the span name for this operation.
// Format: reportops.run.<resource>.<name> or reportops.run.<name>
func (m OperationMeta) SpanName() string {
	if m.Resource != "" {
		return "reportops.run." + m.Resource + "." + m.Name
	}
	return "reportops.run." + m.Name
}

// OperationID returns ID if set, otherwise resource.name.
func (m OperationMeta) OperationID() string {
	if m.ID != "" {
		return m.ID
	}
	if m.Resource != "" {
		return m.Resource + "." + m.Name
	}
	return m.Name
}

// Validate reports whether the metadata carries a name.
func (m OperationMeta) Validate() error {
	if m.Name == "" {
		return ErrMissingOperationName
	}
	return nil
}
