package rendezvous

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/multiformats/go-varint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-pgas/pkg/interfaces"
	"github.com/dep2p/go-pgas/pkg/types"
)

func TestFrame_RequestResponse(t *testing.T) {
	var buf bytes.Buffer

	req := &Request{Op: OpLookup, Rank: 3, Key: "1:heapx:0:base", Value: []byte{0, 1, 2, 255}, Wait: true, Epoch: 7, Embed: true}
	n, err := WriteRequest(&buf, req)
	require.NoError(t, err)
	assert.Equal(t, buf.Len(), n)

	resp := &Response{
		Status: StatusOK,
		Value:  []byte("value"),
		Rank:   2,
		Info: interfaces.BootstrapInfo{
			Rank:           2,
			JobSize:        4,
			LocalPeerCount: 2,
			LocalPeers:     []types.Rank{1, 2},
			Namespace:      "ns",
		},
	}
	_, err = WriteResponse(&buf, resp)
	require.NoError(t, err)

	r := bufio.NewReader(&buf)
	gotReq, n, err := ReadRequest(r)
	require.NoError(t, err)
	assert.Positive(t, n)
	assert.Equal(t, req, gotReq)

	gotResp, _, err := ReadResponse(r)
	require.NoError(t, err)
	assert.Equal(t, resp, gotResp)
}

func TestReadFrame_Errors(t *testing.T) {
	t.Run("too large", func(t *testing.T) {
		r := bufio.NewReader(bytes.NewReader(varint.ToUvarint(MaxMessageSize + 1)))
		_, _, err := ReadRequest(r)
		assert.ErrorIs(t, err, ErrMessageTooLarge)
	})

	t.Run("truncated", func(t *testing.T) {
		data := append(varint.ToUvarint(10), 1, 2)
		_, _, err := ReadRequest(bufio.NewReader(bytes.NewReader(data)))
		assert.Error(t, err)
	})

	t.Run("missing op", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := WriteRequest(&buf, &Request{})
		require.NoError(t, err)
		_, _, err = ReadRequest(bufio.NewReader(&buf))
		assert.ErrorIs(t, err, ErrInvalidMessage)
	})
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status Status
		want   error
	}{
		{nil, StatusOK, nil},
		{ErrPending, StatusPending, ErrPending},
		{fmt.Errorf("%w: k", ErrNotFound), StatusNotFound, ErrNotFound},
		{fmt.Errorf("%w: k", ErrKeyConflict), StatusConflict, ErrKeyConflict},
		{ErrInvalidEpoch, StatusInvalid, ErrInvalidMessage},
		{ErrJobFull, StatusInvalid, ErrInvalidMessage},
		{errors.New("boom"), StatusError, ErrInternalError},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			st := StatusFromError(tt.err)
			assert.Equal(t, tt.status, st)

			err := StatusToError(st, "text")
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}

	assert.ErrorIs(t, StatusToError("bogus", ""), ErrInvalidMessage)
}
