package memory

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// eval reports whether v matches q and its relevance score.
func eval(q map[string]any, v view) (bool, float64, error) {
	if len(q) != 1 {
		return false, 0, fmt.Errorf("query clause must have exactly one key, got %d", len(q))
	}
	for kind, raw := range q {
		body, ok := raw.(map[string]any)
		if !ok {
			return false, 0, fmt.Errorf("%s: clause body must be an object", kind)
		}
		switch kind {
		case "match_all":
			return true, 1, nil
		case "term":
			return evalTerm(body, v)
		case "terms":
			return evalTerms(body, v)
		case "exists":
			field, _ := body["field"].(string)
			return len(v.values(field)) > 0, 1, nil
		case "range":
			return evalRange(body, v)
		case "match":
			return evalMatch(body, v)
		case "multi_match":
			return evalMultiMatch(body, v)
		case "bool":
			return evalBool(body, v)
		case "nested":
			return evalNested(body, v)
		default:
			return false, 0, fmt.Errorf("unsupported query %q", kind)
		}
	}
	return false, 0, nil
}

func singleField(kind string, body map[string]any) (string, any, error) {
	if len(body) != 1 {
		return "", nil, fmt.Errorf("%s: expected a single field", kind)
	}
	for f, v := range body {
		return f, v, nil
	}
	return "", nil, nil
}

func evalTerm(body map[string]any, v view) (bool, float64, error) {
	field, raw, err := singleField("term", body)
	if err != nil {
		return false, 0, err
	}
	want := raw
	if obj, ok := raw.(map[string]any); ok {
		want = obj["value"]
	}
	for _, got := range v.values(field) {
		if equal(got, want) {
			return true, 1, nil
		}
	}
	return false, 0, nil
}

func evalTerms(body map[string]any, v view) (bool, float64, error) {
	field, raw, err := singleField("terms", body)
	if err != nil {
		return false, 0, err
	}
	wanted, ok := raw.([]any)
	if !ok {
		return false, 0, fmt.Errorf("terms: values of %s must be a list", field)
	}
	for _, got := range v.values(field) {
		for _, w := range wanted {
			if equal(got, w) {
				return true, 1, nil
			}
		}
	}
	return false, 0, nil
}

func evalRange(body map[string]any, v view) (bool, float64, error) {
	field, raw, err := singleField("range", body)
	if err != nil {
		return false, 0, err
	}
	bounds, ok := raw.(map[string]any)
	if !ok {
		return false, 0, fmt.Errorf("range: bounds of %s must be an object", field)
	}
	for _, got := range v.values(field) {
		if inRange(got, bounds) {
			return true, 1, nil
		}
	}
	return false, 0, nil
}

func inRange(value any, bounds map[string]any) bool {
	for op, b := range bounds {
		if op == "format" {
			continue
		}
		cmp, ok := compareBound(value, b, op == "lte" || op == "gt")
		if !ok {
			return false
		}
		switch op {
		case "gt":
			if cmp <= 0 {
				return false
			}
		case "gte":
			if cmp < 0 {
				return false
			}
		case "lt":
			if cmp >= 0 {
				return false
			}
		case "lte":
			if cmp > 0 {
				return false
			}
		}
	}
	return true
}

// compareBound compares value to a range bound; string bounds that are not
// numbers are compared as dates, rounded up when roundUp is set.
func compareBound(value, bound any, roundUp bool) (int, bool) {
	if s, isString := bound.(string); isString {
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			bt, ok := parseDate(s, roundUp)
			vs, isStr := value.(string)
			if !ok || !isStr {
				return 0, false
			}
			vt, ok := parseDate(vs, false)
			if !ok {
				return 0, false
			}
			return vt.Compare(bt), true
		}
	}
	bf, ok := toFloat(bound)
	if !ok {
		return 0, false
	}
	vf, ok := toFloat(value)
	if !ok {
		return 0, false
	}
	switch {
	case vf < bf:
		return -1, true
	case vf > bf:
		return 1, true
	}
	return 0, true
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// matchField returns how many query tokens occur in field, and whether the
// operator is satisfied.
func matchField(v view, field string, tokens []string, operator string) (bool, int) {
	present := map[string]bool{}
	for _, val := range v.values(field) {
		s, ok := val.(string)
		if !ok {
			s = fmt.Sprint(val)
		}
		for _, tok := range tokenize(s) {
			present[tok] = true
		}
	}
	hits := 0
	for _, tok := range tokens {
		if present[tok] {
			hits++
		}
	}
	if strings.EqualFold(operator, "and") {
		return hits == len(tokens) && hits > 0, hits
	}
	return hits > 0, hits
}

func evalMatch(body map[string]any, v view) (bool, float64, error) {
	field, raw, err := singleField("match", body)
	if err != nil {
		return false, 0, err
	}
	var text, operator string
	switch x := raw.(type) {
	case string:
		text = x
	case map[string]any:
		text, _ = x["query"].(string)
		operator, _ = x["operator"].(string)
	}
	ok, hits := matchField(v, field, tokenize(text), operator)
	return ok, float64(hits), nil
}

func evalMultiMatch(body map[string]any, v view) (bool, float64, error) {
	text, _ := body["query"].(string)
	operator, _ := body["operator"].(string)
	fields, _ := body["fields"].([]any)
	tokens := tokenize(text)

	var (
		matched bool
		best    float64
	)
	for _, raw := range fields {
		spec, _ := raw.(string)
		field, boost := spec, 1.0
		if name, weight, ok := strings.Cut(spec, "^"); ok {
			field = name
			if w, err := strconv.ParseFloat(weight, 64); err == nil {
				boost = w
			}
		}
		ok, hits := matchField(v, field, tokens, operator)
		if !ok {
			continue
		}
		matched = true
		if s := float64(hits) * boost; s > best {
			best = s
		}
	}
	return matched, best, nil
}

func clauses(body map[string]any, key string) ([]map[string]any, error) {
	raw, ok := body[key]
	if !ok {
		return nil, nil
	}
	switch x := raw.(type) {
	case map[string]any:
		return []map[string]any{x}, nil
	case []any:
		out := make([]map[string]any, 0, len(x))
		for _, item := range x {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("bool.%s items must be objects", key)
			}
			out = append(out, m)
		}
		return out, nil
	}
	return nil, fmt.Errorf("bool.%s must be an object or a list", key)
}

func evalBool(body map[string]any, v view) (bool, float64, error) {
	var score float64

	must, err := clauses(body, "must")
	if err != nil {
		return false, 0, err
	}
	for _, c := range must {
		ok, s, err := eval(c, v)
		if err != nil || !ok {
			return false, 0, err
		}
		score += s
	}

	filter, err := clauses(body, "filter")
	if err != nil {
		return false, 0, err
	}
	for _, c := range filter {
		ok, _, err := eval(c, v)
		if err != nil || !ok {
			return false, 0, err
		}
	}

	mustNot, err := clauses(body, "must_not")
	if err != nil {
		return false, 0, err
	}
	for _, c := range mustNot {
		ok, _, err := eval(c, v)
		if err != nil {
			return false, 0, err
		}
		if ok {
			return false, 0, nil
		}
	}

	should, err := clauses(body, "should")
	if err != nil {
		return false, 0, err
	}
	minimum := 0
	if len(should) > 0 && len(must) == 0 && len(filter) == 0 {
		minimum = 1
	}
	if raw, ok := body["minimum_should_match"]; ok {
		if n, ok := toFloat(raw); ok {
			minimum = int(n)
		}
	}
	matched := 0
	for _, c := range should {
		ok, s, err := eval(c, v)
		if err != nil {
			return false, 0, err
		}
		if ok {
			matched++
			score += s
		}
	}
	if matched < minimum {
		return false, 0, nil
	}
	return true, score, nil
}

func evalNested(body map[string]any, v view) (bool, float64, error) {
	path, _ := body["path"].(string)
	q, ok := body["query"].(map[string]any)
	if path == "" || !ok {
		return false, 0, fmt.Errorf("nested: path and query are required")
	}
	var (
		matched bool
		best    float64
	)
	for _, sub := range v.subDocuments(path) {
		ok, s, err := eval(q, v.scoped(path, sub))
		if err != nil {
			return false, 0, err
		}
		if ok {
			matched = true
			if s > best {
				best = s
			}
		}
	}
	return matched, best, nil
}
