// Package schema infers per-field value kinds from a sample of documents.
package schema

import (
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Infer maps each field name to the sorted set of value kinds observed
// across the sample. A field absent from a document contributes nothing
// for that document. An empty sample yields an empty map. Pure function:
// bounding the sample is the caller's job.
func Infer(docs []bson.M) map[string][]string {
	kinds := make(map[string]map[string]bool)

	for _, doc := range docs {
		for field, value := range doc {
			if kinds[field] == nil {
				kinds[field] = make(map[string]bool)
			}
			kinds[field][kindOf(value)] = true
		}
	}

	result := make(map[string][]string, len(kinds))
	for field, set := range kinds {
		list := make([]string, 0, len(set))
		for kind := range set {
			list = append(list, kind)
		}
		sort.Strings(list)
		result[field] = list
	}
	return result
}

// kindOf names the kind of a decoded BSON value. Numeric BSON types
// collapse into "number" to match what the dashboard displays.
func kindOf(value interface{}) string {
	if value == nil {
		return "null"
	}

	switch value.(type) {
	case string:
		return "string"
	case int32, int64, float64:
		return "number"
	case bool:
		return "boolean"
	case bson.M, bson.D:
		return "object"
	case bson.A:
		return "array"
	case primitive.ObjectID:
		return "objectId"
	case primitive.DateTime:
		return "date"
	case primitive.Timestamp:
		return "timestamp"
	case primitive.Binary:
		return "binary"
	case primitive.Decimal128:
		return "decimal"
	case primitive.Regex:
		return "regex"
	case primitive.Null:
		return "null"
	default:
		return "unknown"
	}
}
