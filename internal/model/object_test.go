package model

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnsCoverEveryField(t *testing.T) {
	var f ObjectFields
	cols := f.Columns()
	typ := reflect.TypeOf(f)
	require.Len(t, cols, typ.NumField())

	byTag := make(map[string]string, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		byTag[strings.Split(field.Tag.Get("json"), ",")[0]] = field.Name
	}

	for _, col := range cols {
		name, ok := byTag[col.Name]
		require.True(t, ok, "column %q has no field", col.Name)
		*col.Value = "v-" + col.Name
		assert.Equal(t, "v-"+col.Name, reflect.ValueOf(f).FieldByName(name).String(), "column %q points at the wrong field", col.Name)
	}
}

func TestCatalogObjectJSONIsFlat(t *testing.T) {
	obj := CatalogObject{ID: "x1", ObjectFields: ObjectFields{ObjectID: "OBJ-1", Dimensions: "10x2x3"}}

	raw, err := json.Marshal(obj)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "OBJ-1", m["object_id"])
	assert.Equal(t, "10x2x3", m["dimensions_h_w_d"])
	assert.NotContains(t, m, "ObjectFields")

	var back CatalogObject
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, obj.ObjectFields, back.ObjectFields)
}
