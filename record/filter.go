package record

// Filter reports whether an event should enter the pipeline.
//
// PROCESS_INSTANCE events are admitted only when their intent is START_EVENT
// or END_EVENT; every other category passes unconditionally. A payload that
// cannot be read fails closed: the error tells the caller to drop the event
// after logging it, never to abort the stream.
func Filter(ev RawEvent) (bool, error) {
	doc, err := Parse(ev.Value)
	if err != nil {
		return false, err
	}

	valueType, err := doc.String("valueType")
	if err != nil {
		return false, err
	}
	if valueType != "PROCESS_INSTANCE" {
		return true, nil
	}

	intent, ok := doc.Lookup("intent")
	if !ok {
		return false, nil
	}
	switch intent.String() {
	case "START_EVENT", "END_EVENT":
		return true, nil
	default:
		return false, nil
	}
}
