package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iudanet/esps-console/internal/models"
	"github.com/iudanet/esps-console/pkg/api"
)

var (
	// ErrUnauthorized возвращается (через errors.Is) на ответы 401 и 403
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTooManyRequests возвращается (через errors.Is) на ответ 429, например при блокировке логина
	ErrTooManyRequests = errors.New("too many requests")
)

// StatusError описывает ответ сервера с кодом вне диапазона 2xx
type StatusError struct {
	Message    string
	StatusCode int
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// Is позволяет сравнивать StatusError с ErrUnauthorized и ErrTooManyRequests
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrTooManyRequests:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// Client представляет HTTP клиент для взаимодействия с backend
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error) {
	var resp api.LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Me проверяет токен и возвращает профиль текущего пользователя
func (c *Client) Me(ctx context.Context, token string) (*api.MeResponse, error) {
	var resp api.MeResponse
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("identity request failed: %w", err)
	}
	return &resp, nil
}

// Logout уведомляет сервер о завершении сессии
func (c *Client) Logout(ctx context.Context, token string) error {
	if err := c.doJSON(ctx, http.MethodPost, "/auth/logout", token, struct{}{}, nil); err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	return nil
}

// FetchCollection возвращает сырое тело ответа списка сертификатов.
// Форма ответа (массив или конверт {data: [...]}) разбирается вызывающей стороной.
func (c *Client) FetchCollection(ctx context.Context, token string, source models.Source) ([]byte, error) {
	body, err := c.do(ctx, http.MethodGet, source.CollectionPath(), token, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s failed: %w", source, err)
	}
	return body, nil
}

// FetchDocument загружает одно защищенное поле (xml / xmlsigned) одной записи.
// Отсутствующее в ответе поле возвращается как пустая строка.
func (c *Client) FetchDocument(ctx context.Context, token string, source models.Source, id, field string) (string, error) {
	var resp api.DocumentResponse
	if err := c.doJSON(ctx, http.MethodGet, source.DocumentPath(id, field), token, nil, &resp); err != nil {
		return "", fmt.Errorf("fetch %s of %s/%s failed: %w", field, source, id, err)
	}
	return resp[field], nil
}

// doJSON выполняет запрос и декодирует JSON ответ в result
func (c *Client) doJSON(ctx context.Context, method, path, token string, body, result any) error {
	respBody, err := c.do(ctx, method, path, token, body)
	if err != nil {
		return err
	}

	// Декодируем успешный ответ
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// do выполняет HTTP запрос и возвращает тело успешного ответа
func (c *Client) do(ctx context.Context, method, path, token string, body any) ([]byte, error) {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			statusErr.Message = errResp.Message
		}
		return nil, statusErr
	}

	return respBody, nil
}
