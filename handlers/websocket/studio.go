package websocket

import (
	"context"
	"encoding/base64"
	"fmt"
	"moodboard-server/canvas"
	"moodboard-server/core"
	"moodboard-server/jobs"
	"regexp"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/engine.io/v2/utils"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

// boardRoom holds every connected socket; board changes are broadcast to it.
const boardRoom socketio.Room = "board"

// Studio connects socket.io clients to the board and to their own video surface. Each
// socket gets a pointer bus, a canvas engine and a surface, all torn down when the
// socket goes away.
type Studio struct {
	srv      *socketio.Server
	board    core.BoardStore
	surfaces *jobs.Surfaces

	mu       sync.Mutex
	sessions map[socketio.SocketId]*session
}

// session is the per-socket state. Its methods hold the event logic; the socket glue
// only parses arguments and answers acks.
type session struct {
	bus       *canvas.PointerBus
	engine    *canvas.Engine
	surfaceID string
	poller    *jobs.Poller
	board     core.BoardStore
}

func NewStudio(board core.BoardStore, surfaces *jobs.Surfaces) *Studio {
	return &Studio{
		board:    board,
		surfaces: surfaces,
		sessions: make(map[socketio.SocketId]*session),
	}
}

// Sessions returns the number of connected sockets.
func (s *Studio) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ItemUpdated broadcasts an added or changed item to every socket.
func (s *Studio) ItemUpdated(item core.BoardItem) {
	if s.srv != nil {
		_ = s.srv.To(boardRoom).Emit("board-item-updated", item)
	}
}

// ItemRemoved broadcasts a removed item to every socket.
func (s *Studio) ItemRemoved(id string) {
	if s.srv != nil {
		_ = s.srv.To(boardRoom).Emit("board-item-removed", map[string]any{"id": id})
	}
}

func (s *Studio) SetupSocketIO() *socketio.Server {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(5000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	localhostOrigin := regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1|\[::1\])(:\d+)?$`)
	opts.SetCors(&types.Cors{
		Origin:      []any{localhostOrigin},
		Credentials: true,
	})
	srv := socketio.NewServer(nil, opts)
	s.srv = srv

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}
		s.connect(socket)
	})

	return srv
}

// Close tears down every socket's session.
func (s *Studio) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[socketio.SocketId]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.teardown(s.surfaces)
	}
}

func (s *Studio) connect(socket *socketio.Socket) {
	me := socket.Id()
	socket.Join(boardRoom)

	sess := s.newSession()
	sess.engine.OnPatch(func(item core.BoardItem, removed bool) {
		if removed {
			s.ItemRemoved(item.ID)
			return
		}
		s.ItemUpdated(item)
	})
	sess.poller.OnChange(func(job core.Job) {
		_ = socket.Emit("video-job", job)
	})

	s.mu.Lock()
	s.sessions[me] = sess
	s.mu.Unlock()

	utils.Log().Printf("socket %v connected with video surface %v\n", me, sess.surfaceID)
	_ = socket.Emit("init-studio", map[string]any{"surfaceId": sess.surfaceID})

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	socket.On("pointer-down", func(datas ...any) {
		ack, args := extractAck(datas)
		err := sess.pointerDown(firstMap(args))
		respondWithAck(socket, ack, "pointer-down-ack", err, nil)
	})

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	socket.On("pointer-move", func(datas ...any) {
		_, args := extractAck(datas)
		sess.bus.Publish(canvas.PointerEvent{Type: canvas.PointerMove, Point: parsePoint(firstMap(args))})
	})

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	socket.On("pointer-up", func(datas ...any) {
		sess.bus.Publish(canvas.PointerEvent{Type: canvas.PointerUp})
	})

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	socket.On("video-start", func(datas ...any) {
		ack, args := extractAck(datas)
		req, err := parseVideoRequest(firstMap(args))
		if err != nil {
			respondWithAck(socket, ack, "video-start-ack", err, nil)
			return
		}
		// Submission blocks on the generation service.
		go func() {
			err := sess.poller.Start(context.Background(), req)
			respondWithAck(socket, ack, "video-start-ack", err, nil)
		}()
	})

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	socket.On("video-collect", func(datas ...any) {
		ack, _ := extractAck(datas)
		item, err := sess.collect(context.Background())
		if err != nil {
			respondWithAck(socket, ack, "video-collect-ack", err, nil)
			return
		}
		s.ItemUpdated(item)
		respondWithAck(socket, ack, "video-collect-ack", nil, map[string]any{"item": item})
	})

	socket.On("disconnect", func(datas ...any) {
		s.mu.Lock()
		delete(s.sessions, me)
		s.mu.Unlock()

		sess.teardown(s.surfaces)
		utils.Log().Printf("socket %v disconnected, video surface %v torn down\n", me, sess.surfaceID)

		socket.RemoveAllListeners("")
		socket.Disconnect(true)
	})
}

func (s *Studio) newSession() *session {
	bus := canvas.NewPointerBus()
	id, poller := s.surfaces.Create()
	return &session{
		bus:       bus,
		engine:    canvas.NewEngine(s.board, bus),
		surfaceID: id,
		poller:    poller,
		board:     s.board,
	}
}

func (sess *session) pointerDown(args map[string]any) error {
	itemID, _ := args["itemId"].(string)
	if itemID == "" {
		return core.Validation("item id is required")
	}
	region, _ := args["region"].(string)
	if region == "" {
		region = string(canvas.RegionBody)
	}
	return sess.engine.PointerDown(context.Background(), itemID, canvas.Region(region), parsePoint(args))
}

func (sess *session) collect(ctx context.Context) (core.BoardItem, error) {
	return sess.poller.Collect(ctx, sess.board)
}

func (sess *session) teardown(surfaces *jobs.Surfaces) {
	sess.engine.Teardown()
	if err := surfaces.Teardown(sess.surfaceID); err != nil {
		logrus.WithFields(logrus.Fields{
			"surface_id": sess.surfaceID,
			"error":      err,
		}).Debug("Video surface already gone")
	}
}

func firstMap(args []any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	m, _ := args[0].(map[string]any)
	return m
}

func parsePoint(args map[string]any) core.Point {
	return core.Point{X: toFloat(args["x"]), Y: toFloat(args["y"])}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// parseVideoRequest reads {prompt, aspectRatio, image: {data, mimeType}} where data is
// base64 encoded.
func parseVideoRequest(args map[string]any) (core.VideoRequest, error) {
	if args == nil {
		return core.VideoRequest{}, core.Validation("video request is required")
	}

	req := core.VideoRequest{}
	req.Prompt, _ = args["prompt"].(string)
	req.AspectRatio, _ = args["aspectRatio"].(string)

	if img, ok := args["image"].(map[string]any); ok {
		encoded, _ := img["data"].(string)
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return core.VideoRequest{}, core.Validation(fmt.Sprintf("image data is not valid base64: %v", err))
		}
		mimeType, _ := img["mimeType"].(string)
		req.Image = &core.InlineImage{Data: data, MimeType: mimeType}
	}
	return req, nil
}
