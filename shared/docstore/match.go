package docstore

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// toDoc converts any marshalable value into a bson.D via a BSON round trip,
// so struct tags and map/D inputs are treated the same way.
func toDoc(v interface{}) (bson.D, error) {
	if v == nil {
		return bson.D{}, nil
	}
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var d bson.D
	if err := bson.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return d, nil
}

func lookup(d bson.D, key string) (interface{}, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func asDoc(v interface{}) (bson.D, bool) {
	switch t := v.(type) {
	case bson.D:
		return t, true
	case bson.M:
		d := make(bson.D, 0, len(t))
		for k, val := range t {
			d = append(d, bson.E{Key: k, Value: val})
		}
		return d, true
	default:
		return nil, false
	}
}

// matches reports whether doc satisfies an equality filter
func matches(doc, filter bson.D) (bool, error) {
	for _, cond := range filter {
		if strings.HasPrefix(cond.Key, "$") {
			return false, fmt.Errorf("unsupported query operator %s", cond.Key)
		}
		if sub, ok := asDoc(cond.Value); ok && len(sub) > 0 && strings.HasPrefix(sub[0].Key, "$") {
			return false, fmt.Errorf("unsupported query operator %s on field %s", sub[0].Key, cond.Key)
		}
		got, present := lookup(doc, cond.Key)
		if !present {
			if cond.Value == nil {
				continue
			}
			return false, nil
		}
		if !fieldMatches(got, cond.Value) {
			return false, nil
		}
	}
	return true, nil
}

func fieldMatches(got, want interface{}) bool {
	if valuesEqual(got, want) {
		return true
	}
	if arr, ok := got.(primitive.A); ok {
		return lo.ContainsBy([]interface{}(arr), func(e interface{}) bool {
			return valuesEqual(e, want)
		})
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func valuesEqual(a, b interface{}) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	if aa, ok := a.(primitive.A); ok {
		ba, ok := b.(primitive.A)
		if !ok || len(aa) != len(ba) {
			return false
		}
		for i := range aa {
			if !valuesEqual(aa[i], ba[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// typeRank follows the MongoDB BSON comparison order for the types we store
func typeRank(v interface{}) int {
	switch v.(type) {
	case nil:
		return 1
	case int, int32, int64, float32, float64:
		return 2
	case string:
		return 3
	case bson.D, bson.M:
		return 4
	case primitive.A:
		return 5
	case primitive.ObjectID:
		return 7
	case bool:
		return 8
	case primitive.DateTime, time.Time:
		return 9
	default:
		return 10
	}
}

func compareValues(a, b interface{}) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch av := a.(type) {
	case string:
		return strings.Compare(av, b.(string))
	case primitive.ObjectID:
		bv := b.(primitive.ObjectID)
		return bytes.Compare(av[:], bv[:])
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case primitive.DateTime:
		bv := b.(primitive.DateTime)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	}
	if af, ok := toFloat(a); ok {
		bf, _ := toFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
	}
	return 0
}

func sortDirection(v interface{}) (int, error) {
	n, ok := toFloat(v)
	if !ok || (n != 1 && n != -1) {
		return 0, fmt.Errorf("invalid sort direction %v", v)
	}
	return int(n), nil
}

// orderBy returns the positions of docs sorted by sortKeys; ties keep their
// natural (insertion) order
func orderBy(docs []bson.D, sortKeys bson.D) ([]int, error) {
	order := make([]int, len(docs))
	for i := range order {
		order[i] = i
	}
	if len(sortKeys) == 0 {
		return order, nil
	}
	dirs := make([]int, len(sortKeys))
	for i, e := range sortKeys {
		dir, err := sortDirection(e.Value)
		if err != nil {
			return nil, err
		}
		dirs[i] = dir
	}
	sort.SliceStable(order, func(i, j int) bool {
		for k, e := range sortKeys {
			a, _ := lookup(docs[order[i]], e.Key)
			b, _ := lookup(docs[order[j]], e.Key)
			if c := compareValues(a, b); c != 0 {
				return c*dirs[k] < 0
			}
		}
		return false
	})
	return order, nil
}

// project applies an inclusion or exclusion projection. _id is kept unless
// excluded explicitly.
func project(doc bson.D, projection bson.M) (bson.D, error) {
	if len(projection) == 0 {
		return doc, nil
	}
	include := map[string]bool{}
	exclude := map[string]bool{}
	for k, v := range projection {
		n, ok := toFloat(v)
		if b, isBool := v.(bool); isBool {
			n, ok = lo.Ternary(b, 1.0, 0.0), true
		}
		if !ok {
			return nil, fmt.Errorf("unsupported projection value for %s", k)
		}
		if n == 0 {
			exclude[k] = true
		} else {
			include[k] = true
		}
	}
	nonID := lo.Filter(lo.Keys(exclude), func(k string, _ int) bool { return k != "_id" })
	if len(include) > 0 && len(nonID) > 0 {
		return nil, fmt.Errorf("cannot mix inclusion and exclusion in a projection")
	}

	out := make(bson.D, 0, len(doc))
	for _, e := range doc {
		switch {
		case exclude[e.Key]:
		case len(include) > 0 && !include[e.Key] && e.Key != "_id":
		default:
			out = append(out, e)
		}
	}
	return out, nil
}

// applyUpdate applies $set and $push to doc in place order
func applyUpdate(doc, update bson.D) (bson.D, error) {
	if len(update) == 0 {
		return nil, fmt.Errorf("update document is empty")
	}
	for _, op := range update {
		fields, ok := asDoc(op.Value)
		if !ok {
			return nil, fmt.Errorf("update operator %s requires a document", op.Key)
		}
		switch op.Key {
		case "$set":
			for _, f := range fields {
				doc = setField(doc, f.Key, f.Value)
			}
		case "$push":
			for _, f := range fields {
				cur, present := lookup(doc, f.Key)
				if !present || cur == nil {
					doc = setField(doc, f.Key, primitive.A{f.Value})
					continue
				}
				arr, isArr := cur.(primitive.A)
				if !isArr {
					return nil, fmt.Errorf("cannot $push to non-array field %s", f.Key)
				}
				next := make(primitive.A, len(arr), len(arr)+1)
				copy(next, arr)
				doc = setField(doc, f.Key, append(next, f.Value))
			}
		default:
			if !strings.HasPrefix(op.Key, "$") {
				return nil, fmt.Errorf("update document must contain only update operators")
			}
			return nil, fmt.Errorf("unsupported update operator %s", op.Key)
		}
	}
	return doc, nil
}

func setField(doc bson.D, key string, value interface{}) bson.D {
	for i := range doc {
		if doc[i].Key == key {
			doc[i].Value = value
			return doc
		}
	}
	return append(doc, bson.E{Key: key, Value: value})
}
