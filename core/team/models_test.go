package team

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innocell/innocell/core"
)

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "ABCD2345", NormalizeCode("  abcd2345 "))
	assert.Equal(t, "", NormalizeCode("   "))
}

func TestJoinRequest_Validate(t *testing.T) {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	jr := JoinRequest{Code: " abcd2345 "}
	require.NoError(t, jr.Validate(validate))
	assert.Equal(t, "ABCD2345", jr.Code)

	for _, code := range []string{"", "ABC", "ABCD-234", "ABCD23456"} {
		jr = JoinRequest{Code: code}
		assert.Error(t, jr.Validate(validate), code)
	}
}

func TestTeam_HasMember(t *testing.T) {
	tm := Team{Members: []Member{{UserID: "a"}, {UserID: "b"}}}
	assert.True(t, tm.HasMember("b"))
	assert.False(t, tm.HasMember("c"))
	assert.False(t, Team{}.HasMember("a"))
}

func TestWithUniqueCode(t *testing.T) {
	t.Run("retries on collisions", func(t *testing.T) {
		var codes []string
		got, err := withUniqueCode(func(code string) (Team, error) {
			codes = append(codes, code)
			if len(codes) < 3 {
				return Team{}, errors.Wrap(ErrJoinCodeTaken, "inserting team")
			}
			return Team{JoinCode: code}, nil
		})
		require.NoError(t, err)
		require.Len(t, codes, 3)
		assert.Equal(t, codes[2], got.JoinCode)
		assert.Len(t, got.JoinCode, JoinCodeLength)
	})

	t.Run("gives up", func(t *testing.T) {
		calls := 0
		_, err := withUniqueCode(func(string) (Team, error) {
			calls++
			return Team{}, ErrJoinCodeTaken
		})
		assert.Error(t, err)
		assert.Equal(t, codeAttempts, calls)
	})

	t.Run("other errors are returned", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := withUniqueCode(func(string) (Team, error) { return Team{}, boom })
		assert.Equal(t, boom, err)
	})
}
