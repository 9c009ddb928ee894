package client

import (
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/rzbill/inferq/internal/codec"
	cfgpkg "github.com/rzbill/inferq/internal/config"
	"github.com/rzbill/inferq/internal/runtime"
	"github.com/rzbill/inferq/internal/stream"
)

// ConfigLoader resolves the effective configuration for a command,
// typically file, then environment, then flags.
type ConfigLoader func(cmd *cobra.Command) (cfgpkg.Config, error)

// connectTimeout is shorter than the worker's; helpers are interactive.
const connectTimeout = 5 * time.Second

// withRuntime opens the stream store described by the loaded config and
// ensures it is closed.
func withRuntime(cmd *cobra.Command, load ConfigLoader, fn func(*runtime.Runtime) error) error {
	cfg, err := load(cmd)
	if err != nil {
		return err
	}
	rt, err := runtime.Open(cmd.Context(), runtime.Options{Config: cfg, ConnectTimeout: connectTimeout})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()
	return fn(rt)
}

// resultLine renders a result message for JSON-lines output. Payloads that
// do not decode are shown raw with the decode error.
func resultLine(c codec.Codec, m stream.Message) map[string]any {
	res, err := c.DecodeResult(m.Payload)
	if err != nil {
		out := decodedMessage(m.ID, m.Payload)
		out["decode_error"] = err.Error()
		return out
	}
	out := map[string]any{"id": m.ID, "job_id": res.JobID}
	if res.Failed() {
		out["error"] = res.Error
	} else {
		out["answer"] = res.Answer
	}
	return out
}

// decodedMessage returns a map with id and one of payload_json or payload_text.
func decodedMessage(id string, payload []byte) map[string]any {
	out := map[string]any{"id": id}
	if len(payload) > 0 && (payload[0] == '{' || payload[0] == '[') {
		var v any
		if json.Unmarshal(payload, &v) == nil {
			out["payload_json"] = v
			return out
		}
	}
	if utf8.Valid(payload) {
		out["payload_text"] = string(payload)
		return out
	}
	out["payload_bytes"] = payload
	return out
}
