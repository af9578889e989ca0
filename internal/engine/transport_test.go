package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pion/webrtc/v3"
)

func testRouter(t *testing.T) *Router {
	t.Helper()

	pool := NewPool(PoolOptions{NumWorkers: 1})
	router, err := pool.CreateRouter(testCodecs())
	assert.Nil(t, err)

	return router
}

func clientDTLS() webrtc.DTLSParameters {
	return webrtc.DTLSParameters{
		Role: webrtc.DTLSRoleClient,
		Fingerprints: []webrtc.DTLSFingerprint{
			{Algorithm: "sha-256", Value: "de:ad:be:ef"},
		},
	}
}

func audioParameters() webrtc.RTPParameters {
	return webrtc.RTPParameters{Codecs: testCodecs()[:1]}
}

func videoParameters() webrtc.RTPParameters {
	return webrtc.RTPParameters{Codecs: testCodecs()[1:]}
}

func opusCapability() []webrtc.RTPCodecCapability {
	return []webrtc.RTPCodecCapability{
		{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
	}
}

func connectedSendTransport(t *testing.T, router *Router) *Transport {
	t.Helper()

	transport, err := router.CreateTransport(DirectionSend)
	assert.Nil(t, err)
	assert.Nil(t, transport.Connect(clientDTLS()))

	return transport
}

func TestCreateTransportRejectsUnknownDirection(t *testing.T) {
	router := testRouter(t)

	_, err := router.CreateTransport(Direction("sideways"))
	assert.Equal(t, ErrWrongDirection, err)
}

func TestConnectionParamsAreComplete(t *testing.T) {
	router := testRouter(t)

	transport, err := router.CreateTransport(DirectionSend)
	assert.Nil(t, err)

	params := transport.ConnectionParams()
	assert.Equal(t, transport.ID, params.ID)
	assert.Equal(t, DirectionSend, params.Direction)
	assert.NotEmpty(t, params.ICE.UsernameFragment)
	assert.NotEmpty(t, params.ICE.Password)
	assert.NotEmpty(t, params.Candidates)
	assert.NotEmpty(t, params.DTLS.Fingerprints)
}

func TestConnectTwiceFails(t *testing.T) {
	router := testRouter(t)
	transport := connectedSendTransport(t, router)

	assert.Equal(t, ErrTransportConnected, transport.Connect(clientDTLS()))
}

func TestConnectWithoutFingerprintsFails(t *testing.T) {
	router := testRouter(t)

	transport, err := router.CreateTransport(DirectionSend)
	assert.Nil(t, err)

	err = transport.Connect(webrtc.DTLSParameters{Role: webrtc.DTLSRoleClient})
	assert.Equal(t, ErrTransportUnconnected, err)
	assert.False(t, transport.Connected())
}

func TestProduceRequiresConnectedSendTransport(t *testing.T) {
	router := testRouter(t)

	recv, err := router.CreateTransport(DirectionRecv)
	assert.Nil(t, err)
	_, err = recv.Produce(webrtc.RTPCodecTypeAudio, audioParameters())
	assert.Equal(t, ErrWrongDirection, err)

	send, err := router.CreateTransport(DirectionSend)
	assert.Nil(t, err)
	_, err = send.Produce(webrtc.RTPCodecTypeAudio, audioParameters())
	assert.Equal(t, ErrTransportUnconnected, err)
}

func TestProduceRegistersProducerOnRouter(t *testing.T) {
	router := testRouter(t)
	transport := connectedSendTransport(t, router)

	producer, err := transport.Produce(webrtc.RTPCodecTypeAudio, audioParameters())
	assert.Nil(t, err)

	found, ok := router.Producer(producer.ID)
	assert.True(t, ok)
	assert.Equal(t, producer, found)
}

func TestConsumeStartsPaused(t *testing.T) {
	router := testRouter(t)
	send := connectedSendTransport(t, router)

	producer, err := send.Produce(webrtc.RTPCodecTypeAudio, audioParameters())
	assert.Nil(t, err)

	recv, err := router.CreateTransport(DirectionRecv)
	assert.Nil(t, err)

	consumer, err := recv.Consume(producer.ID, opusCapability())
	assert.Nil(t, err)
	assert.True(t, consumer.Paused())

	assert.Nil(t, consumer.Resume())
	assert.False(t, consumer.Paused())
}

func TestConsumeRejectsIncompatibleCapabilities(t *testing.T) {
	router := testRouter(t)
	send := connectedSendTransport(t, router)

	producer, err := send.Produce(webrtc.RTPCodecTypeVideo, videoParameters())
	assert.Nil(t, err)

	recv, err := router.CreateTransport(DirectionRecv)
	assert.Nil(t, err)

	// Audio-only receiver cannot attach to a VP8 producer.
	_, err = recv.Consume(producer.ID, opusCapability())
	assert.Equal(t, ErrCannotConsume, err)
}

func TestConsumeRejectsClosedProducer(t *testing.T) {
	router := testRouter(t)
	send := connectedSendTransport(t, router)

	producer, err := send.Produce(webrtc.RTPCodecTypeAudio, audioParameters())
	assert.Nil(t, err)
	producer.Close()

	recv, err := router.CreateTransport(DirectionRecv)
	assert.Nil(t, err)

	_, err = recv.Consume(producer.ID, opusCapability())
	assert.Equal(t, ErrCannotConsume, err)
}

func TestProducerPauseResume(t *testing.T) {
	router := testRouter(t)
	send := connectedSendTransport(t, router)

	producer, err := send.Produce(webrtc.RTPCodecTypeAudio, audioParameters())
	assert.Nil(t, err)
	assert.False(t, producer.Paused())

	assert.Nil(t, producer.Pause())
	assert.True(t, producer.Paused())

	assert.Nil(t, producer.Resume())
	assert.False(t, producer.Paused())
}

func TestReplaceTrackKeepsProducerIdentity(t *testing.T) {
	router := testRouter(t)
	send := connectedSendTransport(t, router)

	producer, err := send.Produce(webrtc.RTPCodecTypeVideo, videoParameters())
	assert.Nil(t, err)

	recv, err := router.CreateTransport(DirectionRecv)
	assert.Nil(t, err)
	consumer, err := recv.Consume(producer.ID, []webrtc.RTPCodecCapability{
		{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
	})
	assert.Nil(t, err)

	id := producer.ID
	replacement := webrtc.RTPParameters{
		Codecs: videoParameters().Codecs,
		HeaderExtensions: []webrtc.RTPHeaderExtensionParameter{
			{URI: "urn:ietf:params:rtp-hdrext:sdes:mid", ID: 1},
		},
	}
	assert.Nil(t, producer.ReplaceTrack(replacement))

	assert.Equal(t, id, producer.ID)
	assert.Equal(t, replacement, producer.Parameters())
	assert.Equal(t, producer, consumer.Producer())
	assert.False(t, consumer.Closed())
}

func TestReplaceTrackOnClosedProducerFails(t *testing.T) {
	router := testRouter(t)
	send := connectedSendTransport(t, router)

	producer, err := send.Produce(webrtc.RTPCodecTypeVideo, videoParameters())
	assert.Nil(t, err)
	producer.Close()

	assert.Equal(t, ErrProducerClosed, producer.ReplaceTrack(videoParameters()))
}

func TestTransportCloseCascades(t *testing.T) {
	router := testRouter(t)
	send := connectedSendTransport(t, router)

	producer, err := send.Produce(webrtc.RTPCodecTypeAudio, audioParameters())
	assert.Nil(t, err)

	recv, err := router.CreateTransport(DirectionRecv)
	assert.Nil(t, err)
	consumer, err := recv.Consume(producer.ID, opusCapability())
	assert.Nil(t, err)

	send.Close()

	assert.True(t, send.Closed())
	assert.True(t, producer.Closed())

	_, ok := router.Producer(producer.ID)
	assert.False(t, ok)

	recv.Close()
	assert.True(t, consumer.Closed())
}

func TestTransportCloseIsIdempotent(t *testing.T) {
	router := testRouter(t)
	transport := connectedSendTransport(t, router)

	transport.Close()
	transport.Close()

	assert.True(t, transport.Closed())
	assert.Equal(t, ErrTransportClosed, transport.Connect(clientDTLS()))
}

func TestRouterCloseClosesTransports(t *testing.T) {
	router := testRouter(t)
	send := connectedSendTransport(t, router)

	producer, err := send.Produce(webrtc.RTPCodecTypeAudio, audioParameters())
	assert.Nil(t, err)

	router.Close()

	assert.True(t, send.Closed())
	assert.True(t, producer.Closed())

	_, err = router.CreateTransport(DirectionSend)
	assert.Equal(t, ErrRouterClosed, err)
}
