package agentapp

import (
	"context"
	"strings"

	"github.com/briarwatch/meetingcap/internal/controller"
	"github.com/briarwatch/meetingcap/internal/ipc"
)

// newIPCHandler builds the running agent's local control surface: status,
// stop, and start (optionally with a title), each mapped onto the
// controller's corresponding method.
func newIPCHandler(ctrl *controller.Controller) ipc.HandlerFunc {
	return func(ctx context.Context, req ipc.Request) ipc.Response {
		command, arg, _ := strings.Cut(req.Command, " ")

		switch command {
		case "status":
			snap := ctrl.Snapshot()
			return ipc.Response{OK: true, State: string(snap.Phase), Message: snap.Title}
		case "stop":
			if err := ctrl.ManualStop(ctx); err != nil {
				return ipc.Response{OK: false, Error: err.Error()}
			}
			return ipc.Response{OK: true, Message: "stopped"}
		case "start":
			title := strings.TrimSpace(arg)
			if title == "" {
				title = "Untitled Meeting"
			}
			if err := ctrl.ManualStart(ctx, title); err != nil {
				return ipc.Response{OK: false, Error: err.Error()}
			}
			return ipc.Response{OK: true, Message: "recording started: " + title}
		default:
			return ipc.Response{OK: false, Error: "unknown command: " + command}
		}
	}
}
