// Package seed загружает демонстрационных пользователей и сертификаты из YAML.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/iudanet/esps-console/internal/crypto"
	"github.com/iudanet/esps-console/internal/models"
	"github.com/iudanet/esps-console/internal/server/storage"
	"github.com/iudanet/esps-console/internal/validation"
)

// File - содержимое seed файла
type File struct {
	Users        []User        `yaml:"users"`
	Certificates []Certificate `yaml:"certificates"`
}

// User - пользователь в seed файле; пароль хранится открытым текстом и хешируется при загрузке
type User struct {
	Username string `yaml:"username"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	Roles    []Role `yaml:"roles"`
}

// Role - назначение роли в приложении
type Role struct {
	RoleName string `yaml:"role_name"`
	AppsID   string `yaml:"apps_id"`
}

// Certificate - запись одного источника с ее документами
type Certificate struct {
	Record    map[string]any `yaml:"record"`
	Source    string         `yaml:"source"`
	XML       string         `yaml:"xml"`
	XMLSigned string         `yaml:"xmlsigned"`
}

// Result - итог загрузки
type Result struct {
	UsersCreated int
	UsersSkipped int
	Certificates int
}

// Storage - хранилища, которые заполняет seed
type Storage interface {
	storage.UserStorage
	storage.CertificateStorage
}

// Parse читает seed файл; неизвестные ключи считаются ошибкой
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	return &f, nil
}

// LoadFile разбирает path и загружает его содержимое в store
func LoadFile(ctx context.Context, logger *slog.Logger, path string, store Storage) (Result, error) {
	fh, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer func() {
		_ = fh.Close()
	}()

	f, err := Parse(fh)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}
	return Load(ctx, logger, f, store)
}

// Load создает пользователей и сохраняет сертификаты.
// Существующие пользователи не изменяются; сертификаты перезаписываются по (source, id).
func Load(ctx context.Context, logger *slog.Logger, f *File, store Storage) (Result, error) {
	var res Result
	now := time.Now().UTC()

	for i, u := range f.Users {
		user, err := buildUser(u, now)
		if err != nil {
			return res, fmt.Errorf("users[%d]: %w", i, err)
		}
		if err := store.CreateUser(ctx, user); err != nil {
			if errors.Is(err, storage.ErrUserAlreadyExists) {
				logger.DebugContext(ctx, "seed user already exists", slog.String("username", user.Username))
				res.UsersSkipped++
				continue
			}
			return res, fmt.Errorf("users[%d]: %w", i, err)
		}
		res.UsersCreated++
	}

	for i, c := range f.Certificates {
		cert, err := buildCertificate(c, now)
		if err != nil {
			return res, fmt.Errorf("certificates[%d]: %w", i, err)
		}
		if err := store.SaveCertificate(ctx, cert); err != nil {
			return res, fmt.Errorf("certificates[%d]: %w", i, err)
		}
		res.Certificates++
	}

	logger.InfoContext(ctx, "seed loaded",
		slog.Int("users_created", res.UsersCreated),
		slog.Int("users_skipped", res.UsersSkipped),
		slog.Int("certificates", res.Certificates))

	return res, nil
}

func buildUser(u User, now time.Time) (*models.User, error) {
	username := strings.TrimSpace(u.Username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(u.Password); err != nil {
		return nil, fmt.Errorf("user %s: %w", username, err)
	}
	hash, err := crypto.HashPassword(u.Password)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", username, err)
	}

	name := u.Name
	if name == "" {
		name = username
	}
	roles := make([]models.RoleAssignment, 0, len(u.Roles))
	for _, r := range u.Roles {
		if r.RoleName == "" || r.AppsID == "" {
			return nil, fmt.Errorf("user %s: role_name and apps_id are required", username)
		}
		roles = append(roles, models.RoleAssignment{RoleName: r.RoleName, AppsID: r.AppsID})
	}

	return &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Name:         name,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    now,
	}, nil
}

func buildCertificate(c Certificate, now time.Time) (*models.Certificate, error) {
	src, err := models.ParseSource(c.Source)
	if err != nil {
		return nil, err
	}
	if len(c.Record) == 0 {
		return nil, fmt.Errorf("%s: empty record", src)
	}
	if c.XMLSigned != "" && !src.HasDocumentField("xmlsigned") {
		return nil, fmt.Errorf("%s: source has no signed documents", src)
	}

	record := models.Record(c.Record)
	header := record.Header()
	id := header.IDCert
	if src.IDKey() == models.FieldIDHub {
		id = header.IDHub
	}
	if err := validation.ValidateRecordID(id); err != nil {
		return nil, fmt.Errorf("%s: %s: %w", src, src.IDKey(), err)
	}

	payload, err := json.Marshal(c.Record)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: failed to encode record: %w", src, id, err)
	}

	return &models.Certificate{
		Source:    src,
		ID:        id,
		CertDate:  header.TglCert,
		Payload:   payload,
		XML:       c.XML,
		XMLSigned: c.XMLSigned,
		CreatedAt: now,
	}, nil
}
