package services

import (
	"testing"

	"github.com/Dosada05/run-contest/contest"
	"github.com/Dosada05/run-contest/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryService_DeployOncePerNetwork(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.registries.Current(env.ctx)
	require.ErrorIs(t, err, ErrRegistryNotDeployed)

	reg := env.deployRegistry(t)
	assert.Equal(t, operator, reg.Owner)
	assert.Equal(t, 0, reg.NumContests)
	assert.Nil(t, reg.CurrentContest)

	_, err = env.registries.Deploy(env.ctx, alice)
	require.ErrorIs(t, err, ErrRegistryAlreadyDeployed)
	assert.Len(t, env.store.registries, 1, "the losing registry row must roll back")

	cur, err := env.registries.Current(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, reg.Address, cur.Address)
}

func TestRegistryService_EmptyRegistry(t *testing.T) {
	env := newTestEnv(t)
	reg := env.deployRegistry(t)

	_, err := env.registries.CurrentContest(env.ctx, reg.Address)
	require.ErrorIs(t, err, contest.ErrEmptyRegistry)

	n, err := env.registries.NumContests(env.ctx, reg.Address)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRegistryService_AddContest(t *testing.T) {
	env := newTestEnv(t)
	reg := env.deployRegistry(t)
	c := env.deployContest(t)

	tests := []struct {
		name    string
		caller  models.Address
		handle  models.Address
		wantErr error
	}{
		{name: "non owner", caller: alice, handle: c.Address, wantErr: contest.ErrUnauthorized},
		{name: "duplicate", caller: operator, handle: c.Address, wantErr: contest.ErrDuplicateContest},
		{name: "unknown contest", caller: operator, handle: "0xnowhere", wantErr: ErrContestNotFound},
		{name: "unknown registry", caller: operator, handle: c.Address, wantErr: ErrRegistryNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := reg.Address
			if tt.wantErr == ErrRegistryNotFound {
				target = "0xmissing"
			}
			_, err := env.registries.AddContest(env.ctx, tt.caller, target, tt.handle)
			require.ErrorIs(t, err, tt.wantErr)

			n, err := env.registries.NumContests(env.ctx, reg.Address)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestRegistryService_GetUnknown(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.registries.Get(env.ctx, "0xmissing")
	require.ErrorIs(t, err, ErrRegistryNotFound)
}
