package rpcserver

import (
	"context"
	"fmt"

	"github.com/rhodecode/vcsserver/internal/vcserrors"
	"github.com/rhodecode/vcsserver/internal/vcsserver"
	"github.com/rhodecode/vcsserver/internal/wire"
)

// ServerBackend dispatches RPC methods onto internal/vcsserver, the
// "server" route in spec.md §4.8's backend table (spec.md §4.10).
type ServerBackend struct {
	Server *vcsserver.Server
}

func (b *ServerBackend) Dispatch(ctx context.Context, method string, _ wire.Args, args []any) (any, error) {
	switch method {
	case "ping":
		return nil, vcserrors.Translate(b.Server.Ping())

	case "echo":
		data, _ := arg(args, 0).([]byte)
		return b.Server.Echo(data), nil

	case "sleep":
		secs, _ := floatArg(arg(args, 0))
		return nil, vcserrors.Translate(b.Server.Sleep(ctx, secs))

	case "get_pid":
		return b.Server.GetPID(), nil

	case "run_gc":
		return b.Server.RunGC(), nil

	case "shutdown":
		b.Server.Shutdown()
		return nil, nil

	default:
		return nil, vcserrors.Generic(fmt.Errorf("server: unknown method %q", method))
	}
}

func floatArg(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
