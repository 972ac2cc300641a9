package gremlin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const mimeType = "application/vnd.gremlin-v2.0+json"

// Response status codes from the server protocol.
const (
	statusSuccess        = 200
	statusNoContent      = 204
	statusPartialContent = 206
)

// Client submits scripts to a Gremlin Server endpoint over one websocket
// connection. It is not safe for concurrent use; callers serialize access.
type Client struct {
	conn *websocket.Conn
	log  *zap.Logger
}

// Dial connects to a Gremlin Server websocket endpoint like
// "wss://host:8182/gremlin".
func Dial(ctx context.Context, endpoint string, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", endpoint, err)
	}
	return &Client{conn: conn, log: log}, nil
}

// Close shuts the connection down.
func (c *Client) Close() error { return c.conn.Close() }

type request struct {
	RequestID string         `json:"requestId"`
	Op        string         `json:"op"`
	Processor string         `json:"processor"`
	Args      map[string]any `json:"args"`
}

type response struct {
	RequestID string `json:"requestId"`
	Status    struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
	Result struct {
		Data json.RawMessage `json:"data"`
	} `json:"result"`
}

// Submit evaluates a script and returns the result rows with their GraphSON
// type wrappers removed.
func (c *Client) Submit(ctx context.Context, script string) ([]any, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(request{
		RequestID: id,
		Op:        "eval",
		Processor: "",
		Args: map[string]any{
			"gremlin":  script,
			"language": "gremlin-groovy",
		},
	})
	if err != nil {
		return nil, err
	}

	// the frame carries its mime type length-prefixed ahead of the payload
	frame := make([]byte, 0, 1+len(mimeType)+len(payload))
	frame = append(frame, byte(len(mimeType)))
	frame = append(frame, mimeType...)
	frame = append(frame, payload...)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetWriteDeadline(deadline); err != nil {
			return nil, err
		}
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
	}
	c.log.Debug("submitting script", zap.String("requestId", id), zap.Int("length", len(script)))
	if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	var rows []any
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}
		var resp response
		if err := json.Unmarshal(message, &resp); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
		if resp.RequestID != id {
			continue
		}

		switch resp.Status.Code {
		case statusNoContent:
			return rows, nil
		case statusSuccess, statusPartialContent:
			if len(resp.Result.Data) > 0 {
				var data any
				if err := json.Unmarshal(resp.Result.Data, &data); err != nil {
					return nil, fmt.Errorf("decoding result data: %w", err)
				}
				if list, ok := Unwrap(data).([]any); ok {
					rows = append(rows, list...)
				} else {
					rows = append(rows, Unwrap(data))
				}
			}
			if resp.Status.Code == statusPartialContent {
				continue
			}
			return rows, nil
		default:
			return nil, fmt.Errorf("server returned %d: %s", resp.Status.Code, resp.Status.Message)
		}
	}
}

// Unwrap strips GraphSON {"@type": ..., "@value": ...} wrappers recursively,
// leaving plain Go values.
func Unwrap(value any) any {
	switch v := value.(type) {
	case map[string]any:
		if inner, ok := v["@value"]; ok {
			if typ, typed := v["@type"].(string); typed {
				if typ == "g:Map" {
					// maps serialize as alternating key/value lists
					if list, ok := inner.([]any); ok && len(list)%2 == 0 {
						out := make(map[string]any, len(list)/2)
						for i := 0; i < len(list); i += 2 {
							if key, ok := Unwrap(list[i]).(string); ok {
								out[key] = Unwrap(list[i+1])
							}
						}
						return out
					}
				}
				return Unwrap(inner)
			}
		}
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = Unwrap(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Unwrap(item)
		}
		return out
	default:
		return value
	}
}
