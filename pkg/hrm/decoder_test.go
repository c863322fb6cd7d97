/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package hrm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRateOnly(t *testing.T) {
	now := time.Unix(1700000000, 5)
	s, err := DecodeAt([]byte{0x00, 0x3c}, now)
	require.NoError(t, err)
	assert.Equal(t, now.UnixNano(), s.Time)
	assert.Equal(t, 60.0, s.Rate)
	assert.Equal(t, []float64{}, s.RR)
}

func TestDecodeSingleRR(t *testing.T) {
	s, err := Decode([]byte{0x10, 0x3c, 0x00, 0x04})
	require.NoError(t, err)
	assert.Equal(t, 60.0, s.Rate)
	assert.Equal(t, []float64{1.0}, s.RR)
	assert.False(t, s.IsDiscontinuity())
}

func TestDecode16BitRate(t *testing.T) {
	s, err := Decode([]byte{0x01, 0x10, 0x01})
	require.NoError(t, err)
	assert.Equal(t, float64(0x0110), s.Rate)
}

func TestDecodeUsesWallClock(t *testing.T) {
	before := time.Now().UnixNano()
	s, err := Decode([]byte{0x00, 0x50})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, s.Time, before)
	assert.LessOrEqual(t, s.Time, time.Now().UnixNano())
}

func TestDecodeError(t *testing.T) {
	_, err := Decode([]byte{0x10, 0x3c, 0x00})
	require.Error(t, err)
	decodeErr, ok := err.(ErrDecode)
	require.True(t, ok)
	assert.Equal(t, []byte{0x10, 0x3c, 0x00}, decodeErr.Frame)
	assert.Contains(t, err.Error(), "103c00")

	_, err = Decode([]byte{0x00})
	assert.IsType(t, ErrDecode{}, err)
}
