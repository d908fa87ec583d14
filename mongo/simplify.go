package mongo

import "go.mongodb.org/mongo-driver/bson"

// Simplify merges runs of consecutive $match stages into a single $match
// combining them with $and. The input is not modified.
func Simplify(stages []bson.M) []bson.M {
	result := make([]bson.M, 0, len(stages))

	var run bson.A

	flush := func() {
		switch len(run) {
		case 0:
		case 1:
			result = append(result, bson.M{"$match": run[0]})
		default:
			result = append(result, bson.M{"$match": bson.M{"$and": run}})
		}

		run = nil
	}

	for _, stage := range stages {
		match, ok := matchOf(stage)
		if !ok {
			flush()

			result = append(result, stage)

			continue
		}

		// flatten conditions already combined with $and
		if and, ok := onlyAnd(match); ok && len(and) > 0 {
			run = append(run, and...)
		} else {
			run = append(run, match)
		}
	}

	flush()

	return result
}

func matchOf(stage bson.M) (bson.M, bool) {
	if len(stage) != 1 {
		return nil, false
	}

	match, ok := stage["$match"].(bson.M)

	return match, ok
}

func onlyAnd(match bson.M) (bson.A, bool) {
	if len(match) != 1 {
		return nil, false
	}

	and, ok := match["$and"].(bson.A)

	return and, ok
}
