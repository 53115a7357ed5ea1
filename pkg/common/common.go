package common

import (
	"encoding/json"
	"io"
	"log"
	"math/rand"
	"net/http"

	"golang.org/x/crypto/argon2"
)

// Msg is the uniform body for non-entity responses (errors, notices).
type Msg struct {
	Message string `json:"message"`
}

func WriteMsg(w http.ResponseWriter, msg string, code int) {
	w.WriteHeader(code)
	WriteRespJSON(w, Msg{msg})
}

func WriteRespJSON(w http.ResponseWriter, data interface{}) {
	resp, err := json.Marshal(data)
	if err != nil {
		log.Println("common: JSON marshaling failed", err)
		WriteMsg(w, "response failed", http.StatusInternalServerError)
		return
	}

	if _, err = w.Write(resp); err != nil {
		log.Println("common: failed writing response", err)
	}
}

func ParseReqBody(body io.Reader, ptr interface{}) error {
	return json.NewDecoder(body).Decode(ptr)
}

var letterRunes = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

func RandStringRunes(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letterRunes[rand.Intn(len(letterRunes))]
	}
	return string(b)
}

// HashPass prepends the salt to the argon2 hash so the salt can be
// recovered from the stored value on login.
func HashPass(plainPassword, salt string) []byte {
	hashed := argon2.IDKey([]byte(plainPassword), []byte(salt), 1, 64*1024, 4, 32)
	return append([]byte(salt), hashed...)
}
