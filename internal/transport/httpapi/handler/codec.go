package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/kislikjeka/walletd/internal/proto"
)

const protobufContentType = "application/x-protobuf"

// maxBodyBytes bounds request bodies; wallet inputs are a handful of short
// strings.
const maxBodyBytes = 1 << 20

// protoMessage is implemented by every wire message in internal/proto.
type protoMessage interface {
	MarshalProto() []byte
	UnmarshalProto(data []byte) error
}

// wantsProtobuf reports whether any Accept value mentions the protobuf
// content type. Everything else gets JSON.
func wantsProtobuf(r *http.Request) bool {
	for _, accept := range r.Header.Values("Accept") {
		if strings.Contains(accept, protobufContentType) {
			return true
		}
	}
	return false
}

// decodeRequest unmarshals the body as protobuf or JSON depending on
// Content-Type.
func decodeRequest(r *http.Request, msg protoMessage) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if strings.Contains(r.Header.Get("Content-Type"), protobufContentType) {
		return msg.UnmarshalProto(body)
	}
	return json.Unmarshal(body, msg)
}

// respondOutput writes the response envelope. Business outcomes, errors
// included, travel as HTTP 200; the envelope itself says what happened.
func respondOutput(w http.ResponseWriter, r *http.Request, out *proto.GenericOutput) {
	if wantsProtobuf(r) {
		w.Header().Set("Content-Type", protobufContentType)
		w.WriteHeader(http.StatusOK)
		w.Write(out.MarshalProto())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(out)
}

// respondInternal is the only non-200 path: infrastructure failures.
func respondInternal(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(`{"error":"internal server error"}`))
}
