// Package parser implements the default record-parsing rules that turn event
// documents into domain entities. The pipeline consumes it through the
// dispatch.Parser interface, so deployments with different business rules can
// swap it out.
package parser

import (
	"fmt"

	"github.com/fynarfin/ph-ee-importer-rdbms/dispatch"
	"github.com/fynarfin/ph-ee-importer-rdbms/record"
)

// Parser is the default dispatch.Parser.
type Parser struct{}

func New() *Parser {
	return &Parser{}
}

// ParseInstance produces one lifecycle marker row per instance event.
func (p *Parser) ParseInstance(doc record.Document, in dispatch.InstanceInput) ([]dispatch.Entity, error) {
	intent, err := doc.String("intent")
	if err != nil {
		return nil, fmt.Errorf("instance record: %w", err)
	}
	workflowKey, err := doc.Int("value.processDefinitionKey")
	if err != nil {
		return nil, fmt.Errorf("instance record: %w", err)
	}

	return []dispatch.Entity{dispatch.InstanceRecord{
		WorkflowInstanceKey: in.WorkflowInstanceKey,
		WorkflowKey:         workflowKey,
		Timestamp:           in.Timestamp,
		FlowID:              in.FlowID,
		FlowType:            in.FlowType,
		ElementID:           in.ElementID,
		ElementType:         in.ElementType,
		Intent:              intent,
	}}, nil
}

// ParseTask produces one task row per job event.
func (p *Parser) ParseTask(doc record.Document, in dispatch.TaskInput) ([]dispatch.Entity, error) {
	intent, err := doc.String("intent")
	if err != nil {
		return nil, fmt.Errorf("task record: %w", err)
	}
	elementID, err := doc.String("value.elementId")
	if err != nil {
		return nil, fmt.Errorf("task record: %w", err)
	}
	jobType, _ := doc.Lookup("value.type")

	return []dispatch.Entity{dispatch.TaskRecord{
		WorkflowInstanceKey: in.WorkflowInstanceKey,
		WorkflowKey:         in.WorkflowKey,
		Timestamp:           in.Timestamp,
		Intent:              intent,
		RecordType:          in.RecordType,
		Type:                jobType.String(),
		ElementID:           elementID,
	}}, nil
}

// ParseVariables produces one variable row per document in the remaining
// batch. A document without a variable name fails the whole handoff.
func (p *Parser) ParseVariables(docs []record.Document, in dispatch.VariableInput) ([]dispatch.Entity, error) {
	entities := make([]dispatch.Entity, 0, len(docs))
	for _, doc := range docs {
		name, err := doc.String("value.name")
		if err != nil {
			return nil, fmt.Errorf("variable record: %w", err)
		}
		value, _ := doc.Lookup("value.value")
		timestamp, err := doc.Int("timestamp")
		if err != nil {
			return nil, fmt.Errorf("variable record: %w", err)
		}

		entities = append(entities, dispatch.VariableRecord{
			WorkflowInstanceKey: in.WorkflowInstanceKey,
			WorkflowKey:         in.WorkflowKey,
			Timestamp:           timestamp,
			Name:                name,
			Value:               value.String(),
		})
	}
	return entities, nil
}

// ParseIncident produces one incident row per incident event.
func (p *Parser) ParseIncident(doc record.Document, in dispatch.IncidentInput) ([]dispatch.Entity, error) {
	errorType, _ := doc.Lookup("value.errorType")
	errorMessage, _ := doc.Lookup("value.errorMessage")

	return []dispatch.Entity{dispatch.IncidentRecord{
		WorkflowInstanceKey: in.WorkflowInstanceKey,
		Timestamp:           in.Timestamp,
		FlowID:              in.FlowID,
		FlowType:            in.FlowType,
		ErrorType:           errorType.String(),
		ErrorMessage:        errorMessage.String(),
	}}, nil
}
