package pipeline

// CloneValue deep-copies the container shapes produced by JSON decoding
// ([]any and map[string]any). Scalars and other types are returned as-is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		if t == nil {
			return t
		}

		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}

		return out
	case map[string]any:
		if t == nil {
			return t
		}

		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = CloneValue(e)
		}

		return out
	case []string:
		return cloneStrings(t)
	case *IfThenElse:
		return t.Clone()
	default:
		return v
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}

	return append([]string{}, s...)
}

func clonePairs(p [][2]string) [][2]string {
	if p == nil {
		return nil
	}

	return append([][2]string{}, p...)
}

func cloneValuePairs(p [][2]any) [][2]any {
	if p == nil {
		return nil
	}

	out := make([][2]any, len(p))
	for i, pair := range p {
		out[i] = [2]any{CloneValue(pair[0]), CloneValue(pair[1])}
	}

	return out
}
