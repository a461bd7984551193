package tts

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	yatts "github.com/yandex-cloud/go-genproto/yandex/cloud/ai/tts/v3"

	"github.com/docsynth/docsynth/internal/config"
)

const yandexEndpoint = "tts.api.cloud.yandex.net:443"

// YandexClient synthesizes speech through the Yandex SpeechKit TTS v3 gRPC
// API. Fragments are written as OGG Opus.
type YandexClient struct {
	cfg    *config.Config
	client yatts.SynthesizerClient
	conn   *grpc.ClientConn
}

// NewYandexClient dials the SpeechKit endpoint and returns a client bound
// to the configured folder and API key.
func NewYandexClient(cfg *config.Config) (*YandexClient, error) {
	creds := credentials.NewTLS(&tls.Config{})
	conn, err := grpc.Dial(yandexEndpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to TTS service: %w", err)
	}

	return &YandexClient{
		cfg:    cfg,
		client: yatts.NewSynthesizerClient(conn),
		conn:   conn,
	}, nil
}

// SynthesizeChunk streams one utterance synthesis and writes the received
// audio to pathStem.ogg.
func (c *YandexClient) SynthesizeChunk(ctx context.Context, text, pathStem string) (string, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Api-Key "+c.cfg.YandexAPIKey)
	ctx = metadata.AppendToOutgoingContext(ctx, "x-folder-id", c.cfg.YandexFolderID)

	stream, err := c.client.UtteranceSynthesis(ctx, c.buildRequest(text))
	if err != nil {
		return "", yandexError(err)
	}

	path := pathStem + ".ogg"
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create fragment: %w", err)
	}
	defer f.Close()

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			os.Remove(path)
			return "", yandexError(err)
		}
		if chunk := resp.GetAudioChunk(); chunk != nil {
			if _, err := f.Write(chunk.GetData()); err != nil {
				os.Remove(path)
				return "", fmt.Errorf("failed to write fragment: %w", err)
			}
		}
	}

	return path, nil
}

// buildRequest assembles a fresh request per chunk; nothing is shared
// between concurrent calls.
func (c *YandexClient) buildRequest(text string) *yatts.UtteranceSynthesisRequest {
	req := &yatts.UtteranceSynthesisRequest{}
	req.SetModel("general")
	req.SetText(text)

	voiceHint := &yatts.Hints{}
	voiceHint.SetVoice(c.cfg.YandexVoice)
	speedHint := &yatts.Hints{}
	speedHint.SetSpeed(c.cfg.YandexSpeed)
	req.SetHints([]*yatts.Hints{voiceHint, speedHint})

	containerAudio := &yatts.ContainerAudio{}
	containerAudio.SetContainerAudioType(yatts.ContainerAudio_OGG_OPUS)
	audioSpec := &yatts.AudioFormatOptions{}
	audioSpec.SetContainerAudio(containerAudio)
	req.SetOutputAudioSpec(audioSpec)

	req.SetLoudnessNormalizationType(yatts.UtteranceSynthesisRequest_LUFS)
	return req
}

// yandexError maps a gRPC failure onto the provider error contract.
func yandexError(err error) error {
	st := status.Convert(err)
	return &ProviderError{
		Provider:   "yandex",
		StatusCode: int(st.Code()),
		Message:    st.Message(),
	}
}

// Close closes the gRPC connection.
func (c *YandexClient) Close() error {
	return c.conn.Close()
}
