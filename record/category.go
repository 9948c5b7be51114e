package record

// Category is the event discriminant carried in the payload's valueType
// field. Values outside the known set parse to CategoryUnknown, which the
// dispatcher treats as a batch-fatal condition.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryDeployment
	CategoryProcessInstance
	CategoryJob
	CategoryVariable
	CategoryVariableDocument
	CategoryWorkflowInstance
	CategoryIncident
)

var categoryNames = map[string]Category{
	"DEPLOYMENT":        CategoryDeployment,
	"PROCESS_INSTANCE":  CategoryProcessInstance,
	"JOB":               CategoryJob,
	"VARIABLE":          CategoryVariable,
	"VARIABLE_DOCUMENT": CategoryVariableDocument,
	"WORKFLOW_INSTANCE": CategoryWorkflowInstance,
	"INCIDENT":          CategoryIncident,
}

// ParseCategory maps a valueType string to its Category.
func ParseCategory(s string) Category {
	return categoryNames[s]
}

func (c Category) String() string {
	for name, cat := range categoryNames {
		if cat == c {
			return name
		}
	}
	return "UNKNOWN"
}
