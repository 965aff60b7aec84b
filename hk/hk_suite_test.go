// Package hk provides mechanism for registering cleanup/maintenance
// functions which are invoked at specified intervals.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package hk_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/dsebus/dsebus/hk"
)

func TestHousekeeper(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "hk suite")
}

var _ = Describe("housekeeper", func() {
	BeforeEach(func() {
		hk.TestInit()
	})

	It("runs a registered job at its interval", func() {
		ticks := make(chan struct{}, 8)
		hk.Reg("tick", func() time.Duration {
			ticks <- struct{}{}
			return 5 * time.Millisecond
		}, 5*time.Millisecond)
		defer hk.Unreg("tick")

		Eventually(ticks, time.Second).Should(Receive())
		Eventually(ticks, time.Second).Should(Receive())
	})

	It("stops ticking once unregistered", func() {
		ticks := make(chan struct{}, 8)
		hk.Reg("tick", func() time.Duration {
			ticks <- struct{}{}
			return 5 * time.Millisecond
		}, 5*time.Millisecond)

		Eventually(ticks, time.Second).Should(Receive())
		hk.Unreg("tick")

		for len(ticks) > 0 {
			<-ticks
		}
		Consistently(ticks, 50*time.Millisecond).ShouldNot(Receive())
	})

	It("WaitStarted blocks until Run is called", func() {
		done := make(chan struct{})
		go func() {
			hk.WaitStarted()
			close(done)
		}()

		Consistently(done, 20*time.Millisecond).ShouldNot(BeClosed())
		hk.Run()
		Eventually(done, time.Second).Should(BeClosed())
	})
})
