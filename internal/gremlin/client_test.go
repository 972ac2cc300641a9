package gremlin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveGremlin runs a fake Gremlin Server endpoint that answers every eval
// with the frames produced by respond.
func serveGremlin(t *testing.T, respond func(requestID string) []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			// strip the length-prefixed mime type
			require.NotEmpty(t, frame)
			payload := frame[1+int(frame[0]):]
			var req request
			require.NoError(t, json.Unmarshal(payload, &req))
			assert.Equal(t, "eval", req.Op)
			for _, message := range respond(req.RequestID) {
				require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(message)))
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestClientSubmit(t *testing.T) {
	t.Run("single response", func(t *testing.T) {
		server := serveGremlin(t, func(id string) []string {
			return []string{fmt.Sprintf(
				`{"requestId":%q,"status":{"code":200},"result":{"data":["a","b"]}}`, id)}
		})
		defer server.Close()

		c, err := Dial(context.Background(), wsURL(server), nil)
		require.NoError(t, err)
		defer c.Close()

		rows, err := c.Submit(context.Background(), `g.V().values("key")`)
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "b"}, rows)
	})

	t.Run("partial content accumulates", func(t *testing.T) {
		server := serveGremlin(t, func(id string) []string {
			return []string{
				fmt.Sprintf(`{"requestId":%q,"status":{"code":206},"result":{"data":["a"]}}`, id),
				fmt.Sprintf(`{"requestId":%q,"status":{"code":200},"result":{"data":["b"]}}`, id),
			}
		})
		defer server.Close()

		c, err := Dial(context.Background(), wsURL(server), nil)
		require.NoError(t, err)
		defer c.Close()

		rows, err := c.Submit(context.Background(), "g.V()")
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "b"}, rows)
	})

	t.Run("graphson wrappers are stripped", func(t *testing.T) {
		server := serveGremlin(t, func(id string) []string {
			return []string{fmt.Sprintf(
				`{"requestId":%q,"status":{"code":200},"result":{"data":[{"@type":"g:Int64","@value":7}]}}`, id)}
		})
		defer server.Close()

		c, err := Dial(context.Background(), wsURL(server), nil)
		require.NoError(t, err)
		defer c.Close()

		rows, err := c.Submit(context.Background(), "g.V().count()")
		require.NoError(t, err)
		assert.Equal(t, []any{float64(7)}, rows)
	})

	t.Run("server errors surface", func(t *testing.T) {
		server := serveGremlin(t, func(id string) []string {
			return []string{fmt.Sprintf(
				`{"requestId":%q,"status":{"code":597,"message":"script error"}}`, id)}
		})
		defer server.Close()

		c, err := Dial(context.Background(), wsURL(server), nil)
		require.NoError(t, err)
		defer c.Close()

		_, err = c.Submit(context.Background(), "nonsense")
		assert.ErrorContains(t, err, "597")
		assert.ErrorContains(t, err, "script error")
	})
}

func TestUnwrap(t *testing.T) {
	t.Run("nested wrappers", func(t *testing.T) {
		assert.Equal(t,
			map[string]any{"n": float64(3)},
			Unwrap(map[string]any{"n": map[string]any{"@type": "g:Int32", "@value": float64(3)}}))
	})

	t.Run("g:Map alternating pairs", func(t *testing.T) {
		assert.Equal(t,
			map[string]any{"key": "a", "count": float64(2)},
			Unwrap(map[string]any{"@type": "g:Map", "@value": []any{
				"key", "a", "count", map[string]any{"@type": "g:Int64", "@value": float64(2)}}}))
	})

	t.Run("plain values pass through", func(t *testing.T) {
		assert.Equal(t, "x", Unwrap("x"))
		assert.Equal(t, []any{true}, Unwrap([]any{true}))
	})
}
