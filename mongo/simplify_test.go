package mongo

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"go.mongodb.org/mongo-driver/bson"
)

func TestSimplify(t *testing.T) {
	tests := []struct {
		name     string
		input    []bson.M
		expected []bson.M
	}{
		{
			name:     "nothing to merge",
			input:    []bson.M{{"$match": bson.M{"a": 1}}, {"$project": bson.M{"a": 1}}},
			expected: []bson.M{{"$match": bson.M{"a": 1}}, {"$project": bson.M{"a": 1}}},
		},
		{
			name: "consecutive matches",
			input: []bson.M{
				{"$match": bson.M{"a": 1}},
				{"$match": bson.M{"$and": bson.A{bson.M{"b": 2}, bson.M{"c": 3}}}},
				{"$project": bson.M{"a": 1}},
				{"$match": bson.M{"d": 4}},
				{"$match": bson.M{"$or": bson.A{bson.M{"e": 5}}}},
			},
			expected: []bson.M{
				{"$match": bson.M{"$and": bson.A{bson.M{"a": 1}, bson.M{"b": 2}, bson.M{"c": 3}}}},
				{"$project": bson.M{"a": 1}},
				{"$match": bson.M{"$and": bson.A{bson.M{"d": 4}, bson.M{"$or": bson.A{bson.M{"e": 5}}}}}},
			},
		},
		{
			name:     "empty",
			input:    []bson.M{},
			expected: []bson.M{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Simplify(tt.input))
		})
	}
}
