package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/librarian/pkg/llm"
)

// defaultPromptTemplate 默认提示词模板。模板内嵌了拒答指令，
// 要求模型无法从给定图书回答时逐字输出固定拒答句。
const defaultPromptTemplate = `Answer using ONLY the books below. Cite each claim with [1],[2],etc. If you cannot answer from these books, say exactly:
  "I don’t have enough information from the available books to answer this question."
BOOKS:
{{context}}

Q: {{question}}
A:`

// GeneratorConfig 生成器配置。
type GeneratorConfig struct {
	// PromptTemplate 提示词模板，包含 {{context}} 和 {{question}} 占位符。
	// 为空时使用默认模板。
	PromptTemplate string
}

// Generator 负责答案生成。这是流水线中唯一跨网络调用
// 第三方模型服务的组件，不感知引用和依据判定。
type Generator struct {
	chatProvider llm.ChatProvider
	config       *GeneratorConfig
}

// NewGenerator 创建生成器实例。
func NewGenerator(chatProvider llm.ChatProvider, config *GeneratorConfig) *Generator {
	if config == nil {
		config = &GeneratorConfig{}
	}
	if config.PromptTemplate == "" {
		config.PromptTemplate = defaultPromptTemplate
	}
	return &Generator{
		chatProvider: chatProvider,
		config:       config,
	}
}

// GenerateAnswer 组装提示词并调用 LLM 生成原始文本。
// 不做重试，瞬时网络故障作为生成失败向上传播。
func (g *Generator) GenerateAnswer(ctx context.Context, question string, contextText string) (string, error) {
	if ctx.Err() != nil {
		return "", fmt.Errorf("context cancelled before generation: %w", ctx.Err())
	}

	prompt := strings.ReplaceAll(g.config.PromptTemplate, "{{context}}", contextText)
	prompt = strings.ReplaceAll(prompt, "{{question}}", question)

	logger.Info("Calling LLM to generate answer...")
	answer, err := g.chatProvider.Generate(ctx, prompt, "")
	if err != nil {
		logger.Errorw("LLM generation failed", "error", err.Error())
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	logger.Infof("LLM answer generated (length: %d)", len(answer))
	return answer, nil
}
