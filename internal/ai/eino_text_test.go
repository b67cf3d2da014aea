package ai

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeChatModel 用于测试的 ChatModel
type fakeChatModel struct {
	resp    *schema.Message
	err     error
	chunks  []*schema.Message
	tailErr error

	input []*schema.Message
	opts  *model.Options
}

func (m *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.input = input
	m.opts = model.GetCommonOptions(nil, opts...)
	return m.resp, m.err
}

func (m *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.input = input
	m.opts = model.GetCommonOptions(nil, opts...)
	if m.err != nil {
		return nil, m.err
	}
	sr, sw := schema.Pipe[*schema.Message](len(m.chunks) + 1)
	go func() {
		defer sw.Close()
		for _, c := range m.chunks {
			sw.Send(c, nil)
		}
		if m.tailErr != nil {
			sw.Send(nil, m.tailErr)
		}
	}()
	return sr, nil
}

func TestEinoTextGateway(t *testing.T) {
	Convey("EinoTextGateway 适配 Eino ChatModel", t, func() {
		ctx := context.Background()

		Convey("GenerateJSON 把 schema 放进系统提示词", func() {
			cm := &fakeChatModel{resp: schema.AssistantMessage(`{"title": "a"}`, nil)}
			out, err := NewEinoTextGateway(cm).GenerateJSON(ctx, "prompt", `{"type": "object"}`)

			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"title": "a"}`)
			So(cm.input, ShouldHaveLength, 2)
			So(cm.input[0].Role, ShouldEqual, schema.System)
			So(cm.input[0].Content, ShouldContainSubstring, `{"type": "object"}`)
			So(cm.input[1].Content, ShouldEqual, "prompt")
		})

		Convey("调用失败包装为 ErrGatewayUnavailable", func() {
			cm := &fakeChatModel{err: errors.New("401 unauthorized")}
			_, err := NewEinoTextGateway(cm).GenerateJSON(ctx, "p", "{}")
			So(errors.Is(err, ErrGatewayUnavailable), ShouldBeTrue)

			_, err = NewEinoTextGateway(cm).GenerateStream(ctx, "p", "s", SamplingParams{})
			So(errors.Is(err, ErrGatewayUnavailable), ShouldBeTrue)
		})

		Convey("空响应返回 ErrEmptyResponse", func() {
			cm := &fakeChatModel{resp: schema.AssistantMessage("  ", nil)}
			_, err := NewEinoTextGateway(cm).GenerateText(ctx, "p", SamplingParams{})
			So(errors.Is(err, ErrEmptyResponse), ShouldBeTrue)
		})

		Convey("采样参数传给模型，零值不传", func() {
			cm := &fakeChatModel{resp: schema.AssistantMessage("ok", nil)}
			_, err := NewEinoTextGateway(cm).GenerateText(ctx, "p", SamplingParams{Temperature: 1.2})

			So(err, ShouldBeNil)
			So(*cm.opts.Temperature, ShouldEqual, float32(1.2))
			So(cm.opts.TopP, ShouldBeNil)
			So(cm.opts.MaxTokens, ShouldBeNil)
		})

		Convey("流式输出按顺序返回非空片段", func() {
			cm := &fakeChatModel{chunks: []*schema.Message{
				schema.AssistantMessage("Mưa ", nil),
				schema.AssistantMessage("", nil),
				schema.AssistantMessage("rơi.", nil),
			}}
			stream, err := NewEinoTextGateway(cm).GenerateStream(ctx, "p", "system", SamplingParams{Temperature: 1, TopP: 0.95})
			So(err, ShouldBeNil)
			defer stream.Close()

			So(cm.input[0].Content, ShouldEqual, "system")
			So(*cm.opts.TopP, ShouldEqual, float32(0.95))

			var got []string
			for {
				f, err := stream.Recv()
				if errors.Is(err, io.EOF) {
					break
				}
				So(err, ShouldBeNil)
				got = append(got, f)
			}
			So(got, ShouldResemble, []string{"Mưa ", "rơi."})
		})

		Convey("流中途出错包装为 ErrGatewayUnavailable", func() {
			cm := &fakeChatModel{
				chunks:  []*schema.Message{schema.AssistantMessage("a", nil)},
				tailErr: errors.New("connection reset"),
			}
			stream, err := NewEinoTextGateway(cm).GenerateStream(ctx, "p", "", SamplingParams{})
			So(err, ShouldBeNil)
			defer stream.Close()
			So(cm.input, ShouldHaveLength, 1)

			f, err := stream.Recv()
			So(err, ShouldBeNil)
			So(f, ShouldEqual, "a")

			_, err = stream.Recv()
			So(errors.Is(err, ErrGatewayUnavailable), ShouldBeTrue)
		})
	})
}
