package sessions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/gomodule/redigo/redis"

	"github.com/Theadekanmi/softspace/pkg/common"
	"github.com/Theadekanmi/softspace/pkg/user"
)

type (
	sessionKey string

	SessionManager struct {
		secret []byte
		redis  redis.Conn
	}

	jwtClaims struct {
		User user.User `json:"user"`
		jwt.StandardClaims
	}
)

const SessionKey sessionKey = "authenticatedViewer"

var ErrNoAuth = errors.New("sessions: no session found")

func NewSessionManager(secret string, conn redis.Conn) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		redis:  conn,
	}
}

// UserFromToken returns the signed-in viewer when both the JWT and the
// Redis-backed session are valid.
func (sm *SessionManager) UserFromToken(authHeader string) (*user.User, error) {
	if authHeader == "" {
		return nil, errors.New("sessions: auth header not found")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return []byte(sm.secret), nil
		})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok {
		return nil, errors.New("sessions: can't cast token to claim")
	}
	if !token.Valid {
		return nil, errors.New("sessions: token is not valid")
	}

	if _, redisErr := sm.CheckRedis(claims.User.Id, claims.Id); redisErr != nil {
		return nil, fmt.Errorf("sessions/manager: Redis session is not valid: %v", redisErr)
	}

	return &claims.User, nil
}

// Goes through all user sessions and removes expired ones.
func (sm *SessionManager) CleanupUserSessions(userId string) error {
	userSessions, err := redis.StringMap(sm.redis.Do("HGETALL", userId))
	if err != nil {
		log.Println("sessions/manager: can't HGETALL user sessions from Redis:", err)
		return err
	}

	nowTs := time.Now().Unix()
	for sessId, exp := range userSessions {
		expTs, _ := strconv.ParseInt(exp, 10, 64)
		if nowTs > expTs {
			sm.redis.Do("HDEL", userId, sessId)
			log.Printf("sessions/manager: session %s removed (expired at %s)\n", sessId, exp)
		}
	}

	return nil
}

func (sm *SessionManager) CheckRedis(userId, sessionId string) (bool, error) {
	expirationData, err := redis.Bytes(sm.redis.Do("HGET", userId, sessionId))
	if err != nil {
		log.Println("sessions/manager: can't HGET from Redis:", err)
		return false, err
	}

	// Check user session for expiration
	expiredTs, _ := strconv.ParseInt(string(expirationData), 10, 64)
	nowTs := time.Now().Unix()
	if nowTs > expiredTs {
		return false, errors.New("session has expired")
	}

	// Prolongate session expiration time if it expires in less than 24 hours
	// because we don't want to kick off the active user.
	if expiredTs-nowTs < int64(time.Duration(24*time.Hour).Seconds()) {
		newExpDate := time.Now().Add(90 * 24 * time.Hour).Unix()
		if err := sm.AddToRedis(userId, sessionId, newExpDate); err != nil {
			log.Println("sessions/manager: failed add to Redis", err)
			return false, err
		}
	}

	return true, nil
}

func (sm *SessionManager) AddToRedis(userId, sessionId string, exp int64) error {
	_, err := sm.redis.Do("HSET", userId, sessionId, exp)
	if err != nil {
		return fmt.Errorf("sessions/manager: failed HSET to Redis: %v", err)
	}
	return nil
}

func (sm *SessionManager) CreateToken(u *user.User) (string, error) {
	sessionID := common.RandStringRunes(10)
	data := jwtClaims{
		User: *u,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(90 * 24 * time.Hour).Unix(), // 90 days
			IssuedAt:  time.Now().Unix(),
			Id:        sessionID,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, data).SignedString(sm.secret)
	if err != nil {
		return "", err
	}

	if redisErr := sm.AddToRedis(u.Id, sessionID, data.ExpiresAt); redisErr != nil {
		log.Println("sessions/manager: failed add to redis", redisErr)
		return ``, redisErr
	}

	return token, nil
}

// DropSession signs the viewer out by removing the session from Redis.
// The JWT itself stays unusable because UserFromToken re-checks Redis.
func (sm *SessionManager) DropSession(userId, sessionId string) error {
	if _, err := sm.redis.Do("HDEL", userId, sessionId); err != nil {
		return fmt.Errorf("sessions/manager: failed HDEL from Redis: %v", err)
	}
	return nil
}

// SessionIdFromToken extracts the session id (jti) without requiring
// Redis to agree, for sign-out.
func (sm *SessionManager) SessionIdFromToken(authHeader string) (userId, sessionId string, err error) {
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return []byte(sm.secret), nil
		})
	if err != nil {
		return "", "", err
	}
	claims, ok := token.Claims.(*jwtClaims)
	if !ok {
		return "", "", errors.New("sessions: can't cast token to claim")
	}
	return claims.User.Id, claims.Id, nil
}

func GetAuthUser(ctx context.Context) (*user.User, error) {
	u, ok := ctx.Value(SessionKey).(*user.User)
	if !ok || u == nil {
		return nil, ErrNoAuth
	}
	return u, nil
}
