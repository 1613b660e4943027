package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/contracts-extractor/internal/common"
	"github.com/joseph-ayodele/contracts-extractor/internal/services/contracts"
)

// ContractServiceName is the fully qualified gRPC service name.
const ContractServiceName = "contracts.v1.ContractService"

// ContractServiceServer is the gRPC surface. Every message is a
// google.protobuf.Struct carrying the same JSON the HTTP API serves; byte
// payloads travel base64-encoded under "data".
type ContractServiceServer interface {
	Upload(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Get(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Status(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Result(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reprocess(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Download(context.Context, *structpb.Struct) (*structpb.Struct, error)
	List(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Export(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structMethod func(ContractServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call structMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(ContractServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ContractServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ContractServiceDesc describes ContractService for grpc.Server.RegisterService.
var ContractServiceDesc = grpc.ServiceDesc{
	ServiceName: ContractServiceName,
	HandlerType: (*ContractServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Upload", ContractServiceServer.Upload),
		unary("Get", ContractServiceServer.Get),
		unary("Status", ContractServiceServer.Status),
		unary("Result", ContractServiceServer.Result),
		unary("Reprocess", ContractServiceServer.Reprocess),
		unary("Download", ContractServiceServer.Download),
		unary("List", ContractServiceServer.List),
		unary("Delete", ContractServiceServer.Delete),
		unary("Export", ContractServiceServer.Export),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "contracts/v1/contracts.proto",
}

// RegisterContractServiceServer attaches srv to s.
func RegisterContractServiceServer(s grpc.ServiceRegistrar, srv ContractServiceServer) {
	s.RegisterService(&ContractServiceDesc, srv)
}

// ContractServer adapts the contracts service to gRPC.
type ContractServer struct {
	svc    *contracts.Service
	logger *slog.Logger
}

func NewContractServer(svc *contracts.Service, logger *slog.Logger) *ContractServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContractServer{svc: svc, logger: logger}
}

var _ ContractServiceServer = (*ContractServer)(nil)

// fail logs and maps err to a gRPC status.
func (s *ContractServer) fail(ctx context.Context, method string, err error) error {
	log := common.LoggerFrom(ctx, s.logger)
	if common.Kind(err) == common.ErrInternal {
		log.Error("grpc.request.failed", "method", method, "error", err)
	} else {
		log.Debug("grpc.request.rejected", "method", method, "error", err)
	}
	return common.GRPCError(err)
}

func (s *ContractServer) Upload(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	data, err := bytesField(in, "data")
	if err != nil {
		return nil, s.fail(ctx, "Upload", err)
	}
	mimeType := stringField(in, "mime_type")
	if mimeType == "" {
		mimeType = partMIME("", stringField(in, "filename"))
	}
	res, err := s.svc.Upload(ctx, contracts.UploadRequest{
		Filename: stringField(in, "filename"),
		MIMEType: mimeType,
		Data:     data,
		UseOCR:   boolOr(in, "use_ocr", false),
		UseModel: boolOr(in, "use_model", false),
	})
	if err != nil {
		return nil, s.fail(ctx, "Upload", err)
	}
	return toStruct(map[string]any{
		"contract_id": res.Document.ID,
		"status":      res.Document.Status,
		"duplicate":   res.Duplicate,
	})
}

func (s *ContractServer) Get(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := parseID(stringField(in, "id"))
	if err != nil {
		return nil, s.fail(ctx, "Get", err)
	}
	doc, err := s.svc.Get(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "Get", err)
	}
	return toStruct(doc)
}

func (s *ContractServer) Status(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := parseID(stringField(in, "id"))
	if err != nil {
		return nil, s.fail(ctx, "Status", err)
	}
	st, err := s.svc.Status(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "Status", err)
	}
	return toStruct(st)
}

func (s *ContractServer) Result(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := parseID(stringField(in, "id"))
	if err != nil {
		return nil, s.fail(ctx, "Result", err)
	}
	out, err := s.svc.Result(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "Result", err)
	}
	return toStruct(out)
}

func (s *ContractServer) Reprocess(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := parseID(stringField(in, "id"))
	if err != nil {
		return nil, s.fail(ctx, "Reprocess", err)
	}
	st, err := s.svc.Reprocess(ctx, id, contracts.ReprocessRequest{
		UseOCR:   optionalBool(in, "use_ocr"),
		UseModel: optionalBool(in, "use_model"),
	})
	if err != nil {
		return nil, s.fail(ctx, "Reprocess", err)
	}
	return toStruct(st)
}

func (s *ContractServer) Download(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := parseID(stringField(in, "id"))
	if err != nil {
		return nil, s.fail(ctx, "Download", err)
	}
	dl, err := s.svc.Download(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "Download", err)
	}
	defer dl.Body.Close()
	data, err := io.ReadAll(dl.Body)
	if err != nil {
		return nil, s.fail(ctx, "Download", common.InternalFault("read stored file", err))
	}
	return toStruct(map[string]any{
		"filename":   dl.Filename,
		"mime_type":  dl.MIMEType,
		"size_bytes": len(data),
		"data":       base64.StdEncoding.EncodeToString(data),
	})
}

func (s *ContractServer) List(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	q, err := listParams{
		Page:      intOr(in, "page", defaultPage),
		Limit:     intOr(in, "limit", defaultLimit),
		Status:    stringField(in, "status"),
		SortBy:    stringField(in, "sort_by"),
		SortOrder: stringField(in, "sort_order"),
	}.query()
	if err != nil {
		return nil, s.fail(ctx, "List", err)
	}
	out, err := s.svc.List(ctx, q)
	if err != nil {
		return nil, s.fail(ctx, "List", err)
	}
	return toStruct(out)
}

func (s *ContractServer) Delete(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := parseID(stringField(in, "id"))
	if err != nil {
		return nil, s.fail(ctx, "Delete", err)
	}
	if err := s.svc.Delete(ctx, id, boolOr(in, "force", false)); err != nil {
		return nil, s.fail(ctx, "Delete", err)
	}
	return toStruct(map[string]any{"contract_id": id, "deleted": true})
}

func (s *ContractServer) Export(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	q, err := exportQuery(stringField(in, "status"), stringField(in, "category"))
	if err != nil {
		return nil, s.fail(ctx, "Export", err)
	}
	xlsx, err := s.svc.Export(ctx, q)
	if err != nil {
		return nil, s.fail(ctx, "Export", err)
	}
	return toStruct(map[string]any{
		"filename":  "contracts.xlsx",
		"mime_type": xlsxMIME,
		"data":      base64.StdEncoding.EncodeToString(xlsx),
	})
}

// toStruct renders v through its JSON form so both transports serve the same shape.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, common.GRPCError(common.InternalFault("encode response", err))
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, common.GRPCError(common.InternalFault("encode response", err))
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.GRPCError(common.InternalFault("encode response", err))
	}
	return out, nil
}

func stringField(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

func optionalBool(in *structpb.Struct, key string) *bool {
	v, ok := in.GetFields()[key]
	if !ok {
		return nil
	}
	if _, isBool := v.GetKind().(*structpb.Value_BoolValue); !isBool {
		return nil
	}
	b := v.GetBoolValue()
	return &b
}

func boolOr(in *structpb.Struct, key string, def bool) bool {
	if b := optionalBool(in, key); b != nil {
		return *b
	}
	return def
}

func intOr(in *structpb.Struct, key string, def int) int {
	v, ok := in.GetFields()[key]
	if !ok {
		return def
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
		return def
	}
	return int(v.GetNumberValue())
}

func bytesField(in *structpb.Struct, key string) ([]byte, error) {
	raw := stringField(in, key)
	if raw == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, common.InvalidInputf("%s must be base64", key)
	}
	return b, nil
}
