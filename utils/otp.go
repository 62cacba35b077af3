package utils

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// One time codes are six digit HOTP style codes derived from a shared
// secret and a time step counter. The counter epoch is configurable: email
// OTP anchors it at the issuing challenge's creation time, authenticator
// app codes use the standard Unix epoch.

const otpDigits = 6

// otpSkew is the tolerance, in steps, honoured either side of the current
// counter during verification.
const otpSkew = 1

// GenerateCode derives the code for the current time step.
func GenerateCode(secret string, epoch time.Time, step int64) string {
	return codeAt(secret, epoch, step, time.Now())
}

func codeAt(secret string, epoch time.Time, step int64, at time.Time) string {
	counter := at.Unix() - epoch.Unix()
	if step > 0 {
		counter /= step
	}
	if counter < 0 {
		counter = 0
	}

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, []byte(secret))
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < otpDigits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", otpDigits, bin%mod)
}

// VerifyCode checks a presented code against the current time step with a
// tolerance of one step either side. Comparison is constant time.
func VerifyCode(code string, secret string, epoch time.Time, step int64) bool {
	if len(code) != otpDigits {
		return false
	}

	now := time.Now()
	for skew := -otpSkew; skew <= otpSkew; skew++ {
		at := now.Add(time.Duration(int64(skew)*step) * time.Second)
		if at.Before(epoch) {
			continue
		}
		expected := codeAt(secret, epoch, step, at)
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			return true
		}
	}

	return false
}

// VerifySingleWindowCode checks a code whose epoch is its own creation
// instant. Regardless of the skew tolerance applied internally, the code is
// only honoured while now - createdAt is within one step, making it
// effectively single window.
func VerifySingleWindowCode(code string, secret string, createdAt time.Time, step int64) bool {
	if time.Since(createdAt) > time.Duration(step)*time.Second {
		return false
	}
	return VerifyCode(code, secret, createdAt, step)
}

// VerifyTOTP checks an authenticator app code using the standard Unix epoch
// counter.
func VerifyTOTP(code string, secret string, step int64) bool {
	return VerifyCode(code, secret, time.Unix(0, 0), step)
}

// ProvisionURI renders the otpauth:// payload an authenticator app enrolls
// from.
func ProvisionURI(issuer, account, secret string, step int64) string {
	label := url.PathEscape(issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("period", strconv.FormatInt(step, 10))
	v.Set("digits", strconv.Itoa(otpDigits))
	v.Set("algorithm", "SHA1")

	return "otpauth://totp/" + label + "?" + v.Encode()
}
