// 包 chat：托管模型会话层——转发用户消息并执行模型触发的函数调用
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"mapable-api/internal/logger"
	"mapable-api/internal/metrics"
)

// Message：一条会话消息；role 为 "user" 或 "model"
type Message struct {
	Role         string         `json:"role"`
	Content      string         `json:"content"`
	Timestamp    *time.Time     `json:"timestamp,omitempty"`
	FunctionCall map[string]any `json:"function_call,omitempty"`
}

// RemoteModelError：模型未配置或不可用；HTTP 层映射为 500 并携带诊断细节
type RemoteModelError struct {
	Detail string
}

func (e *RemoteModelError) Error() string { return e.Detail }

// Service：Gemini 会话服务
// 背景：密钥缺失时服务仍可构建（健康检查要报告配置状态），Chat 调用时报错
type Service struct {
	client     *genai.Client
	model      string
	dispatcher *Dispatcher
}

// NewService：创建会话服务；apiKey 为空时不建客户端
func NewService(ctx context.Context, apiKey, model string, dispatcher *Dispatcher) (*Service, error) {
	s := &Service{model: model, dispatcher: dispatcher}
	if apiKey == "" {
		logger.L().Warn("gemini_key_missing")
		return s, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	s.client = client
	logger.L().Info("gemini_ready", "model", model)
	return s, nil
}

// Configured：是否持有可用客户端
func (s *Service) Configured() bool { return s.client != nil }

// Model：配置的模型名
func (s *Service) Model() string { return s.model }

// Close：释放底层连接
func (s *Service) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Result：一次会话轮次的产出
type Result struct {
	Message        string         `json:"message"`
	FunctionCalled map[string]any `json:"function_called"`
	History        []Message      `json:"conversation_history"`
}

// Chat：处理一条用户消息
// 背景：模型可能直接回复文本，也可能要求调用目录内的函数；后者执行后把结果
// 回传模型换取自然语言总结（第二次往返）。
// 约束：函数执行失败折叠为 [Debug] 诊断文本追加到回复，不让会话整体失败。
func (s *Service) Chat(ctx context.Context, message string, history []Message) (Result, error) {
	metrics.ChatRequestsTotal.Inc()
	if s.client == nil {
		return Result{}, &RemoteModelError{
			Detail: "Gemini API key not configured. Please set GEMINI_API_KEY environment variable.",
		}
	}

	model := s.client.GenerativeModel(s.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemInstruction)}}
	model.Tools = []*genai.Tool{{FunctionDeclarations: functionDeclarations()}}

	cs := model.StartChat()
	for _, m := range history {
		role := m.Role
		if role == "" {
			role = "user"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return Result{}, s.modelError(ctx, err)
	}

	var replyText strings.Builder
	var functionCalled map[string]any
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			switch p := part.(type) {
			case genai.Text:
				replyText.WriteString(string(p))
			case genai.FunctionCall:
				text, record := s.executeFunction(ctx, cs, p)
				replyText.WriteString(text)
				if record != nil {
					functionCalled = record
				}
			}
		}
	}

	now := time.Now()
	updated := append(append([]Message{}, history...),
		Message{Role: "user", Content: message, Timestamp: &now},
		Message{Role: "model", Content: replyText.String(), Timestamp: &now, FunctionCall: functionCalled},
	)
	return Result{
		Message:        replyText.String(),
		FunctionCalled: functionCalled,
		History:        updated,
	}, nil
}

// executeFunction：执行一次模型触发的函数调用并取回总结文本
func (s *Service) executeFunction(ctx context.Context, cs *genai.ChatSession, call genai.FunctionCall) (string, map[string]any) {
	logger.L().Debug("chat_function_call", "name", call.Name)
	result, err := s.dispatcher.Dispatch(ctx, call.Name, call.Args)
	if err != nil {
		// 不升级为请求失败：附加诊断，继续会话
		logger.L().Warn("chat_function_error", "name", call.Name, "err", err)
		return fmt.Sprintf("\n[Debug] Could not process function_call '%s'; error=%v\n", call.Name, err), nil
	}
	record := map[string]any{
		"function_name": call.Name,
		"arguments":     call.Args,
		"result":        result,
	}
	resp, err := cs.SendMessage(ctx, genai.FunctionResponse{Name: call.Name, Response: result})
	if err != nil {
		logger.L().Warn("chat_function_summary_error", "name", call.Name, "err", err)
		return fmt.Sprintf("\n[Debug] Function '%s' executed but summary failed; error=%v\n", call.Name, err), record
	}
	var text strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}
	return text.String(), record
}

// modelError：把模型不可用错误升级为带候选模型列表的诊断
// 背景：配置了不存在/不支持生成的模型时，给出当前可用的 generateContent 模型清单
func (s *Service) modelError(ctx context.Context, err error) error {
	msg := err.Error()
	low := strings.ToLower(msg)
	if !strings.Contains(low, "not found") && !strings.Contains(msg, "404") && !strings.Contains(msg, "models/") {
		return &RemoteModelError{Detail: fmt.Sprintf("Chat error: %s", msg)}
	}
	suggestion := "Could not fetch model list from API."
	it := s.client.ListModels(ctx)
	var supported []string
	for {
		m, nerr := it.Next()
		if nerr == iterator.Done {
			break
		}
		if nerr != nil {
			supported = nil
			break
		}
		for _, method := range m.SupportedGenerationMethods {
			if method == "generateContent" {
				supported = append(supported, m.Name)
				break
			}
		}
		if len(supported) == 10 {
			break
		}
	}
	if len(supported) > 0 {
		suggestion = strings.Join(supported, ", ")
	}
	return &RemoteModelError{
		Detail: fmt.Sprintf("Requested model '%s' is not available or not supported for generation. Error: %s. Available generate-capable models: %s",
			s.model, msg, suggestion),
	}
}
