package schema

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestInfer(t *testing.T) {
	tests := []struct {
		name string
		docs []bson.M
		want map[string][]string
	}{
		{
			name: "empty sample",
			docs: nil,
			want: map[string][]string{},
		},
		{
			name: "single document",
			docs: []bson.M{{"name": "alice", "age": int32(30)}},
			want: map[string][]string{
				"name": {"string"},
				"age":  {"number"},
			},
		},
		{
			name: "mixed kinds across documents",
			docs: []bson.M{
				{"a": int32(1), "b": "x"},
				{"a": int32(2)},
				{"b": true},
			},
			want: map[string][]string{
				"a": {"number"},
				"b": {"boolean", "string"},
			},
		},
		{
			name: "numeric types collapse",
			docs: []bson.M{
				{"n": int32(1)},
				{"n": int64(2)},
				{"n": 3.5},
			},
			want: map[string][]string{
				"n": {"number"},
			},
		},
		{
			name: "bson-specific kinds",
			docs: []bson.M{{
				"id":      primitive.NewObjectID(),
				"created": primitive.DateTime(1700000000000),
				"tags":    bson.A{"a", "b"},
				"meta":    bson.M{"k": "v"},
				"blob":    primitive.Binary{Data: []byte{1}},
				"price":   primitive.NewDecimal128(0, 42),
				"pattern": primitive.Regex{Pattern: "^a"},
				"gone":    nil,
			}},
			want: map[string][]string{
				"id":      {"objectId"},
				"created": {"date"},
				"tags":    {"array"},
				"meta":    {"object"},
				"blob":    {"binary"},
				"price":   {"decimal"},
				"pattern": {"regex"},
				"gone":    {"null"},
			},
		},
		{
			name: "kind sets are sorted",
			docs: []bson.M{
				{"v": "late"},
				{"v": bson.A{}},
				{"v": true},
			},
			want: map[string][]string{
				"v": {"array", "boolean", "string"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Infer(tt.docs)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Infer() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInferRepeatedKindCountedOnce(t *testing.T) {
	docs := []bson.M{
		{"name": "a"},
		{"name": "b"},
		{"name": "c"},
	}
	got := Infer(docs)
	if !reflect.DeepEqual(got["name"], []string{"string"}) {
		t.Errorf("Infer() name kinds = %v, want [string]", got["name"])
	}
}
