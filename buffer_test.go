//
// Copyright (c) 2025, Antonio Chirizzi <antonio.chirizzi@gmail.com>
// All rights reserved.
//
// This code is released under 3-clause BSD license. Please see the
// file LICENSE
//

package xamix

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferQueueFIFO(t *testing.T) {
	var q bufferQueue
	assert.True(t, q.empty())

	b1 := &Buffer{PlayLength: 1}
	b2 := &Buffer{PlayLength: 2}
	q.push(b1)
	q.push(b2)

	assert.False(t, q.empty())
	assert.Same(t, b1, q.head())

	popped := q.popHead()
	assert.Same(t, b1, popped)
	assert.Same(t, b2, q.head())

	q.popHead()
	assert.True(t, q.empty())
	assert.Nil(t, q.head())
}

func TestBufferIsEndOfStream(t *testing.T) {
	b := &Buffer{}
	assert.False(t, b.isEndOfStream())
	b.Flags |= BufferEndOfStream
	assert.True(t, b.isEndOfStream())
}
