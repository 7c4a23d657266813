// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package slice_test

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/kreativeid/pkg/slice"
)

func TestMap(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, slice.Map([]int{1, 2, 3}, strconv.Itoa))
}

func TestMap_NilEncodesAsArray(t *testing.T) {
	out := slice.Map[int, string](nil, strconv.Itoa)
	require.NotNil(t, out)

	body, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(body))
}
