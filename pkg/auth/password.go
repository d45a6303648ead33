package auth

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/asistros/pkg/config"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost 现行方案的成本因子
const DefaultBcryptCost = 12

var (
	errLegacyCiphertext = errors.New("legacy ciphertext is malformed")
	errLegacyPadding    = errors.New("legacy ciphertext has invalid padding")
)

// PasswordScheme 密码存储方案
type PasswordScheme interface {
	// Name 方案名称，用于日志
	Name() string
	// Match 判断存储值是否属于该方案
	Match(storedHash string) bool
	// Verify 校验明文，任何内部错误都视为不匹配
	Verify(plaintext, storedHash string) bool
}

// BcryptScheme 现行方案：bcrypt 自适应哈希
type BcryptScheme struct {
	cost int
}

// NewBcryptScheme 创建 bcrypt 方案
func NewBcryptScheme(cost int) *BcryptScheme {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptScheme{cost: cost}
}

// Name 方案名称
func (s *BcryptScheme) Name() string { return "bcrypt" }

// Match bcrypt 哈希以版本前缀开头
func (s *BcryptScheme) Match(storedHash string) bool {
	return strings.HasPrefix(storedHash, "$2a$") ||
		strings.HasPrefix(storedHash, "$2b$") ||
		strings.HasPrefix(storedHash, "$2y$")
}

// Verify 校验密码
func (s *BcryptScheme) Verify(plaintext, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
}

// Hash 生成哈希
func (s *BcryptScheme) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(hash), nil
}

// LegacyScheme 历史方案：AES/ECB/PKCS5 对称加密，密文为标准 base64
// 迁移完成后整个类型可以直接删除
type LegacyScheme struct {
	block cipher.Block
}

// NewLegacyScheme 创建历史方案
// 密钥不足16字节时补零，超过时截断到16字节
func NewLegacyScheme(key string) (*LegacyScheme, error) {
	if key == "" {
		return nil, errors.New("legacy key is empty")
	}
	k := make([]byte, aes.BlockSize)
	copy(k, key)
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("legacy cipher: %w", err)
	}
	return &LegacyScheme{block: block}, nil
}

// Name 方案名称
func (s *LegacyScheme) Name() string { return "legacy-aes" }

// Match 历史方案是兜底方案
func (s *LegacyScheme) Match(string) bool { return true }

// Verify 解密后比较明文
func (s *LegacyScheme) Verify(plaintext, storedHash string) bool {
	decrypted, err := s.Decrypt(storedHash)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(decrypted), []byte(plaintext)) == 1
}

// Encrypt 加密明文，仅用于初始化数据
func (s *LegacyScheme) Encrypt(plaintext string) (string, error) {
	size := s.block.BlockSize()
	pad := size - len(plaintext)%size
	src := append([]byte(plaintext), bytes.Repeat([]byte{byte(pad)}, pad)...)

	dst := make([]byte, len(src))
	for i := 0; i < len(src); i += size {
		s.block.Encrypt(dst[i:i+size], src[i:i+size])
	}
	return base64.StdEncoding.EncodeToString(dst), nil
}

// Decrypt 解密存储值
func (s *LegacyScheme) Decrypt(storedHash string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(storedHash)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errLegacyCiphertext, err)
	}
	size := s.block.BlockSize()
	if len(raw) == 0 || len(raw)%size != 0 {
		return "", errLegacyCiphertext
	}

	dst := make([]byte, len(raw))
	for i := 0; i < len(raw); i += size {
		s.block.Decrypt(dst[i:i+size], raw[i:i+size])
	}

	pad := int(dst[len(dst)-1])
	if pad == 0 || pad > size {
		return "", errLegacyPadding
	}
	for _, b := range dst[len(dst)-pad:] {
		if int(b) != pad {
			return "", errLegacyPadding
		}
	}
	return string(dst[:len(dst)-pad]), nil
}

// PasswordVerifier 双方案密码校验器
// 按存储值前缀选择方案：bcrypt 前缀走现行方案，其余走历史方案
type PasswordVerifier struct {
	modern *BcryptScheme
	legacy PasswordScheme
}

// NewPasswordVerifier 根据配置创建校验器，未配置历史密钥时只支持现行方案
func NewPasswordVerifier(cfg *config.PasswordConfig) (*PasswordVerifier, error) {
	v := &PasswordVerifier{modern: NewBcryptScheme(cfg.BcryptCost)}
	if cfg.LegacyKey != "" {
		legacy, err := NewLegacyScheme(cfg.LegacyKey)
		if err != nil {
			return nil, err
		}
		v.legacy = legacy
	}
	return v, nil
}

// NewPasswordVerifierWithSchemes 组装自定义方案
func NewPasswordVerifierWithSchemes(modern *BcryptScheme, legacy PasswordScheme) *PasswordVerifier {
	return &PasswordVerifier{modern: modern, legacy: legacy}
}

// Verify 校验明文与存储值
func (v *PasswordVerifier) Verify(plaintext, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	if v.modern.Match(storedHash) {
		return v.modern.Verify(plaintext, storedHash)
	}
	if v.legacy == nil {
		return false
	}
	return v.legacy.Verify(plaintext, storedHash)
}

// IsModernScheme 存储值是否已经是现行方案
func (v *PasswordVerifier) IsModernScheme(storedHash string) bool {
	return v.modern.Match(storedHash)
}

// HashModern 使用现行方案生成哈希
func (v *PasswordVerifier) HashModern(plaintext string) (string, error) {
	return v.modern.Hash(plaintext)
}
