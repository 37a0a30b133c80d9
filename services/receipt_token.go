package services

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/skip2/go-qrcode"

	"saborlimeno/gorest/models"
)

const receiptIssuer = "saborlimeno"

// ReceiptClaims identify a receipt inside a verification token.
type ReceiptClaims struct {
	ReceiptID int `json:"rid"`
	OrderID   int `json:"oid"`
	jwt.RegisteredClaims
}

// ReceiptSigner issues and checks the HS256 tokens printed on receipts as
// QR codes.
type ReceiptSigner struct {
	secret  []byte
	baseURL string
	now     func() time.Time
}

func NewReceiptSigner(secret, publicURL string) *ReceiptSigner {
	return &ReceiptSigner{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(publicURL, "/"),
		now:     time.Now,
	}
}

func (s *ReceiptSigner) Sign(r *models.Receipt) (string, error) {
	claims := ReceiptClaims{
		ReceiptID: r.ID,
		OrderID:   r.OrderID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   receiptIssuer,
			Subject:  fmt.Sprintf("receipt:%d", r.ID),
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses a token, returning ErrUnauthorized when it is malformed,
// tampered with or signed by another key.
func (s *ReceiptSigner) Verify(token string) (*ReceiptClaims, error) {
	claims := &ReceiptClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(receiptIssuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return claims, nil
}

// VerifyURL is the public link encoded in a receipt's QR code.
func (s *ReceiptSigner) VerifyURL(r *models.Receipt) (string, error) {
	token, err := s.Sign(r)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/api/receipts/verify?token=" + url.QueryEscape(token), nil
}

// QRCode renders the verification link as a 256px PNG.
func (s *ReceiptSigner) QRCode(r *models.Receipt) ([]byte, error) {
	link, err := s.VerifyURL(r)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(link, qrcode.Medium, 256)
}
