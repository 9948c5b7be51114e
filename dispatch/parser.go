package dispatch

import "github.com/fynarfin/ph-ee-importer-rdbms/record"

// BatchMeta carries the fields shared by every event in a batch: the
// resolved flow, the grouping key's instance, and the batch's sample
// document (its first event).
type BatchMeta struct {
	FlowID              string
	FlowType            string
	WorkflowInstanceKey int64
	Sample              record.Document
}

// InstanceInput is the input to the process-instance parser.
type InstanceInput struct {
	BatchMeta
	Timestamp   int64
	ElementType string
	ElementID   string
}

// TaskInput is the input to the task parser.
type TaskInput struct {
	BatchMeta
	WorkflowKey int64
	Timestamp   int64
	RecordType  string
}

// VariableInput is the input to the variable parser, which consumes the
// whole remaining batch rather than a single document.
type VariableInput struct {
	BatchMeta
	WorkflowKey int64
}

// IncidentInput is the input to the incident parser.
type IncidentInput struct {
	BatchMeta
	Timestamp int64
}

// Parser turns raw event documents into domain entities. The business rules
// behind each category live outside this pipeline; implementations are
// consumed as black boxes and may fail per event.
type Parser interface {
	ParseInstance(doc record.Document, in InstanceInput) ([]Entity, error)
	ParseTask(doc record.Document, in TaskInput) ([]Entity, error)
	ParseVariables(docs []record.Document, in VariableInput) ([]Entity, error)
	ParseIncident(doc record.Document, in IncidentInput) ([]Entity, error)
}
