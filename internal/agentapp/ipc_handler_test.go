package agentapp

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/briarwatch/meetingcap/internal/controller"
	"github.com/briarwatch/meetingcap/internal/ipc"
)

type stubAppliance struct{}

func (stubAppliance) Reachable(context.Context) bool { return true }
func (stubAppliance) Start(_ context.Context, title string) (controller.StartResult, error) {
	return controller.StartResult{Title: title}, nil
}
func (stubAppliance) Stop(context.Context) (controller.StopResult, error) {
	return controller.StopResult{}, nil
}

type stubSender struct{}

func (stubSender) Start(context.Context) error { return nil }
func (stubSender) Stop(context.Context) error  { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIPCHandlerStatusReportsIdle(t *testing.T) {
	ctrl := controller.New(testLogger(), stubAppliance{}, stubSender{}, nil)
	handler := newIPCHandler(ctrl)

	resp := handler.Handle(context.Background(), ipc.Request{Command: "status"})
	require.True(t, resp.OK)
	require.Equal(t, string(controller.StateIdle), resp.State)
}

func TestIPCHandlerStopWhenIdleFails(t *testing.T) {
	ctrl := controller.New(testLogger(), stubAppliance{}, stubSender{}, nil)
	handler := newIPCHandler(ctrl)

	resp := handler.Handle(context.Background(), ipc.Request{Command: "stop"})
	require.False(t, resp.OK)
	require.NotEmpty(t, resp.Error)
}

func TestIPCHandlerUnknownCommand(t *testing.T) {
	ctrl := controller.New(testLogger(), stubAppliance{}, stubSender{}, nil)
	handler := newIPCHandler(ctrl)

	resp := handler.Handle(context.Background(), ipc.Request{Command: "bogus"})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "unknown command")
}
