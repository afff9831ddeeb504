package rendezvous

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/multiformats/go-varint"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dep2p/go-pgas/pkg/interfaces"
	"github.com/dep2p/go-pgas/pkg/types"
)

// ============================================================================
//                              协议常量
// ============================================================================

// MaxMessageSize 最大消息大小 (1MB)
const MaxMessageSize = 1 << 20

// 操作名
const (
	OpJoin    = "join"
	OpInfo    = "info"
	OpPublish = "publish"
	OpLookup  = "lookup"
	OpBarrier = "barrier"
	OpLeave   = "leave"
)

// Status 响应状态
type Status string

// 响应状态
const (
	StatusOK       Status = "ok"
	StatusPending  Status = "pending"
	StatusNotFound Status = "not_found"
	StatusConflict Status = "conflict"
	StatusInvalid  Status = "invalid"
	StatusError    Status = "error"
)

// ============================================================================
//                              消息
// ============================================================================

// Request 客户端请求
type Request struct {
	Op    string
	Rank  types.Rank
	Host  string
	Key   string
	Value []byte
	Wait  bool
	Epoch uint64
	Embed bool
}

// Response 服务端响应
type Response struct {
	Status Status
	Error  string
	Value  []byte
	Rank   types.Rank
	Info   interfaces.BootstrapInfo
}

// toStruct 编码为 structpb
func (r *Request) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"op":    r.Op,
		"rank":  float64(r.Rank),
		"host":  r.Host,
		"key":   r.Key,
		"value": base64.StdEncoding.EncodeToString(r.Value),
		"wait":  r.Wait,
		"epoch": float64(r.Epoch),
		"embed": r.Embed,
	})
}

// requestFromStruct 从 structpb 解码
func requestFromStruct(s *structpb.Struct) (*Request, error) {
	f := s.GetFields()
	value, err := base64.StdEncoding.DecodeString(f["value"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("%w: value: %w", ErrInvalidMessage, err)
	}
	req := &Request{
		Op:    f["op"].GetStringValue(),
		Rank:  types.Rank(f["rank"].GetNumberValue()),
		Host:  f["host"].GetStringValue(),
		Key:   f["key"].GetStringValue(),
		Value: value,
		Wait:  f["wait"].GetBoolValue(),
		Epoch: uint64(f["epoch"].GetNumberValue()),
		Embed: f["embed"].GetBoolValue(),
	}
	if req.Op == "" {
		return nil, fmt.Errorf("%w: missing op", ErrInvalidMessage)
	}
	return req, nil
}

// toStruct 编码为 structpb
func (r *Response) toStruct() (*structpb.Struct, error) {
	peers := make([]any, len(r.Info.LocalPeers))
	for i, p := range r.Info.LocalPeers {
		peers[i] = float64(p)
	}
	return structpb.NewStruct(map[string]any{
		"status":      string(r.Status),
		"error":       r.Error,
		"value":       base64.StdEncoding.EncodeToString(r.Value),
		"rank":        float64(r.Rank),
		"job_size":    float64(r.Info.JobSize),
		"local_peers": peers,
		"namespace":   r.Info.Namespace,
	})
}

// responseFromStruct 从 structpb 解码
func responseFromStruct(s *structpb.Struct) (*Response, error) {
	f := s.GetFields()
	value, err := base64.StdEncoding.DecodeString(f["value"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("%w: value: %w", ErrInvalidMessage, err)
	}

	var peers []types.Rank
	for _, v := range f["local_peers"].GetListValue().GetValues() {
		peers = append(peers, types.Rank(v.GetNumberValue()))
	}

	resp := &Response{
		Status: Status(f["status"].GetStringValue()),
		Error:  f["error"].GetStringValue(),
		Value:  value,
		Rank:   types.Rank(f["rank"].GetNumberValue()),
		Info: interfaces.BootstrapInfo{
			Rank:           types.Rank(f["rank"].GetNumberValue()),
			JobSize:        int(f["job_size"].GetNumberValue()),
			LocalPeerCount: len(peers),
			LocalPeers:     peers,
			Namespace:      f["namespace"].GetStringValue(),
		},
	}
	if resp.Status == "" {
		return nil, fmt.Errorf("%w: missing status", ErrInvalidMessage)
	}
	return resp, nil
}

// ============================================================================
//                              帧编解码
// ============================================================================

// WriteFrame 写入一帧，返回写入的字节数
func WriteFrame(w io.Writer, msg proto.Message) (int, error) {
	data, err := proto.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal message: %w", err)
	}
	if len(data) > MaxMessageSize {
		return 0, ErrMessageTooLarge
	}

	buf := make([]byte, 0, varint.UvarintSize(uint64(len(data)))+len(data))
	buf = append(buf, varint.ToUvarint(uint64(len(data)))...)
	buf = append(buf, data...)
	if _, err := w.Write(buf); err != nil {
		return 0, fmt.Errorf("failed to write message: %w", err)
	}
	return len(buf), nil
}

// ReadFrame 读取一帧，返回读取的字节数
func ReadFrame(r *bufio.Reader, msg proto.Message) (int, error) {
	length, err := varint.ReadUvarint(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("failed to read length: %w", err)
	}
	if length > MaxMessageSize {
		return 0, ErrMessageTooLarge
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return 0, fmt.Errorf("failed to read message: %w", err)
	}
	if err := proto.Unmarshal(data, msg); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return varint.UvarintSize(length) + int(length), nil
}

// WriteRequest 写入请求帧
func WriteRequest(w io.Writer, req *Request) (int, error) {
	s, err := req.toStruct()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return WriteFrame(w, s)
}

// ReadRequest 读取请求帧
func ReadRequest(r *bufio.Reader) (*Request, int, error) {
	var s structpb.Struct
	n, err := ReadFrame(r, &s)
	if err != nil {
		return nil, n, err
	}
	req, err := requestFromStruct(&s)
	return req, n, err
}

// WriteResponse 写入响应帧
func WriteResponse(w io.Writer, resp *Response) (int, error) {
	s, err := resp.toStruct()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return WriteFrame(w, s)
}

// ReadResponse 读取响应帧
func ReadResponse(r *bufio.Reader) (*Response, int, error) {
	var s structpb.Struct
	n, err := ReadFrame(r, &s)
	if err != nil {
		return nil, n, err
	}
	resp, err := responseFromStruct(&s)
	return resp, n, err
}

// ============================================================================
//                              状态与错误映射
// ============================================================================

// StatusFromError 将存储错误映射为响应状态
func StatusFromError(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrPending):
		return StatusPending
	case errors.Is(err, ErrNotFound):
		return StatusNotFound
	case errors.Is(err, ErrKeyConflict):
		return StatusConflict
	case errors.Is(err, ErrInvalidRank), errors.Is(err, ErrInvalidEpoch),
		errors.Is(err, ErrJobFull), errors.Is(err, ErrInvalidMessage):
		return StatusInvalid
	default:
		return StatusError
	}
}

// StatusToError 将响应状态转换为错误
func StatusToError(status Status, statusText string) error {
	switch status {
	case StatusOK:
		return nil
	case StatusPending:
		return ErrPending
	case StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, statusText)
	case StatusConflict:
		return fmt.Errorf("%w: %s", ErrKeyConflict, statusText)
	case StatusInvalid:
		return fmt.Errorf("%w: %s", ErrInvalidMessage, statusText)
	case StatusError:
		return fmt.Errorf("%w: %s", ErrInternalError, statusText)
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidMessage, status)
	}
}
