package dispatch

// Entity is the closed set of domain entities a batch can produce. The
// marker method seals the set: the commit boundary switches exhaustively over
// these variants and treats anything else as an internal error.
type Entity interface {
	entity()
}

// TaskRecord is a task/job execution row.
type TaskRecord struct {
	WorkflowInstanceKey int64
	WorkflowKey         int64
	Timestamp           int64
	Intent              string
	RecordType          string
	Type                string
	ElementID           string
}

// VariableRecord is one process-variable value row.
type VariableRecord struct {
	WorkflowInstanceKey int64
	WorkflowKey         int64
	Timestamp           int64
	Name                string
	Value               string
}

// IncidentRecord is a workflow incident row.
type IncidentRecord struct {
	WorkflowInstanceKey int64
	Timestamp           int64
	FlowID              string
	FlowType            string
	ErrorType           string
	ErrorMessage        string
}

// InstanceRecord is a process-instance lifecycle marker row.
type InstanceRecord struct {
	WorkflowInstanceKey int64
	WorkflowKey         int64
	Timestamp           int64
	FlowID              string
	FlowType            string
	ElementID           string
	ElementType         string
	Intent              string
}

// TimestampRecord is an arrival/export bookkeeping row, written only when the
// timestamps dump is enabled.
type TimestampRecord struct {
	WorkflowInstanceKey int64
	ExportedTime        string
	ImportedTime        string
	EngineTime          string
}

func (TaskRecord) entity()      {}
func (VariableRecord) entity()  {}
func (IncidentRecord) entity()  {}
func (InstanceRecord) entity()  {}
func (TimestampRecord) entity() {}
