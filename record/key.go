package record

import "fmt"

// GroupingKey identifies the batch an event belongs to. Equality is
// structural; the key orders nothing.
type GroupingKey struct {
	InstanceID string
	Kind       string
}

func (k GroupingKey) String() string {
	return k.InstanceID + "|" + k.Kind
}

// Category returns the parsed discriminant for the key's kind.
func (k GroupingKey) Category() Category {
	return ParseCategory(k.Kind)
}

// ExtractKey derives the GroupingKey for one event. Both fields are
// required; a missing field is an extraction error for that single event and
// never aborts the pipeline.
func ExtractKey(ev RawEvent) (GroupingKey, error) {
	doc, err := Parse(ev.Value)
	if err != nil {
		return GroupingKey{}, err
	}

	instance, ok := doc.Lookup("value.processInstanceKey")
	if !ok {
		return GroupingKey{}, fmt.Errorf("%w: value.processInstanceKey", ErrFieldMissing)
	}
	kind, err := doc.String("valueType")
	if err != nil {
		return GroupingKey{}, err
	}

	return GroupingKey{InstanceID: instance.String(), Kind: kind}, nil
}
