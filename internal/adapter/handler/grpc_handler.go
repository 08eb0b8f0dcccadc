package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/guild-bag/internal/bot"
	"github.com/rl1809/guild-bag/internal/core/domain"
)

const (
	commandServiceName = "guildbag.CommandService"
	executeMethod      = "/" + commandServiceName + "/Execute"
)

type CommandRequest struct {
	RequestID string `json:"request_id"`
	Author    string `json:"author"`
	Channel   string `json:"channel"`
	Content   string `json:"content"`
}

type CommandResponse struct {
	Success bool   `json:"success"`
	Reply   string `json:"reply"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type CommandServiceServer interface {
	Execute(context.Context, *CommandRequest) (*CommandResponse, error)
}

var commandServiceDesc = grpc.ServiceDesc{
	ServiceName: commandServiceName,
	HandlerType: (*CommandServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Execute", Handler: executeHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func executeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CommandRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CommandServiceServer).Execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: executeMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CommandServiceServer).Execute(ctx, req.(*CommandRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func RegisterCommandServiceServer(s grpc.ServiceRegistrar, srv CommandServiceServer) {
	s.RegisterService(&commandServiceDesc, srv)
}

// TokenInterceptor rejects calls whose "authorization" metadata does not
// carry the shared token.
func TokenInterceptor(token string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		var header string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get("authorization"); len(values) > 0 {
				header = values[0]
			}
		}
		if !tokenMatches(header, token) {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return handler(ctx, req)
	}
}

type GRPCHandler struct {
	dispatcher Submitter
}

func NewGRPCHandler(dispatcher Submitter) *GRPCHandler {
	return &GRPCHandler{dispatcher: dispatcher}
}

func (h *GRPCHandler) Execute(ctx context.Context, req *CommandRequest) (*CommandResponse, error) {
	if req.GetContent() == "" {
		return nil, status.Error(codes.InvalidArgument, "content is required")
	}

	reply, err := h.dispatcher.Submit(ctx, domain.Request{
		ID:      req.RequestID,
		Author:  req.Author,
		Channel: req.Channel,
		Text:    req.Content,
	})
	if err != nil {
		if errors.Is(err, bot.ErrDispatcherClosed) {
			return nil, status.Error(codes.Unavailable, "shutting down")
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, status.FromContextError(ctxErr).Err()
		}
		return nil, status.Error(codes.Internal, "internal error")
	}

	resp := &CommandResponse{
		Success: reply.Status == domain.RequestStatusDone,
		Reply:   reply.Content,
		Status:  string(reply.Status),
	}
	switch {
	case reply.Status == domain.RequestStatusDuplicate:
		resp.Message = "duplicate request"
	case reply.Status == domain.RequestStatusFailed && reply.Content == "":
		resp.Message = "internal error"
	}
	return resp, nil
}

func (r *CommandRequest) GetContent() string {
	if r == nil {
		return ""
	}
	return r.Content
}

// CommandClient calls a remote command service.
type CommandClient struct {
	cc    *grpc.ClientConn
	token string
}

func NewCommandClient(target, token string, opts ...grpc.DialOption) (*CommandClient, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodec{}.Name())),
	}, opts...)

	cc, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &CommandClient{cc: cc, token: token}, nil
}

func (c *CommandClient) Execute(ctx context.Context, req *CommandRequest) (*CommandResponse, error) {
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}
	out := new(CommandResponse)
	if err := c.cc.Invoke(ctx, executeMethod, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CommandClient) Close() error {
	return c.cc.Close()
}
