package push

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tastelanc/backoffice/internal/config"
)

func TestInitializerReportsEachOutcome(t *testing.T) {
	calls := 0
	fail := true
	init := &Initializer{connect: func(context.Context) (*messaging.Client, error) {
		calls++
		if fail {
			return nil, errors.New("boom")
		}
		return &messaging.Client{}, nil
	}}
	ctx := context.Background()

	result, err := init.Init(ctx)
	assert.Error(t, err)
	assert.Equal(t, Failed, result)

	fail = false
	result, err = init.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, Initialized, result)

	result, err = init.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, AlreadyInitialized, result)
	assert.Equal(t, 2, calls)
}

func TestCredentialsOption(t *testing.T) {
	_, err := credentialsOption(config.FirebaseConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = credentialsOption(config.FirebaseConfig{CredentialsBase64: "not base64!"})
	assert.Error(t, err)

	opt, err := credentialsOption(config.FirebaseConfig{CredentialsBase64: base64.StdEncoding.EncodeToString([]byte(`{}`))})
	require.NoError(t, err)
	assert.NotNil(t, opt)

	opt, err = credentialsOption(config.FirebaseConfig{CredentialsFile: "/etc/tastelanc/firebase.json"})
	require.NoError(t, err)
	assert.NotNil(t, opt)
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage(Notification{Token: "tok", Title: "Lead waiting", Body: "Follow up", Data: map[string]string{"lead_id": "7"}})

	assert.Equal(t, "tok", msg.Token)
	assert.Equal(t, "Lead waiting", msg.Notification.Title)
	assert.Equal(t, "7", msg.Data["lead_id"])
	assert.Equal(t, "high", msg.Android.Priority)
	assert.Equal(t, 1, *msg.APNS.Payload.Aps.Badge)
}

func TestFirebaseSenderRequiresToken(t *testing.T) {
	s := NewFirebaseSender(&Initializer{}, zap.NewNop())
	assert.ErrorIs(t, s.Send(context.Background(), Notification{}), ErrMissingToken)
}
