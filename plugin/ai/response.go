package ai

// Response is the accumulated result of a streamed completion.
type Response struct {
	Content   string
	ToolCalls []ToolCall
}

// Merge folds one delta into the response. Text concatenates; tool-call
// fragments join the call with the same id, or the same index when the
// fragment carries no id.
func (r *Response) Merge(d *Delta) {
	if d == nil {
		return
	}
	r.Content += d.Content

	for _, tc := range d.ToolCalls {
		call := r.findCall(tc)
		if call == nil {
			r.ToolCalls = append(r.ToolCalls, ToolCall{Index: tc.Index, ID: tc.ID})
			call = &r.ToolCalls[len(r.ToolCalls)-1]
		}
		if call.ID == "" && tc.ID != "" {
			call.ID = tc.ID
		}
		if tc.Name != "" {
			call.Name = tc.Name
		}
		call.Arguments += tc.Arguments
	}
}

func (r *Response) findCall(tc ToolCallDelta) *ToolCall {
	if tc.ID != "" {
		for i := range r.ToolCalls {
			if r.ToolCalls[i].ID == tc.ID {
				return &r.ToolCalls[i]
			}
		}
		// A fresh id at a known index with no id yet claims that slot.
		for i := range r.ToolCalls {
			if r.ToolCalls[i].ID == "" && r.ToolCalls[i].Index == tc.Index {
				return &r.ToolCalls[i]
			}
		}
		return nil
	}
	for i := range r.ToolCalls {
		if r.ToolCalls[i].Index == tc.Index {
			return &r.ToolCalls[i]
		}
	}
	return nil
}
