package observers

import (
	// Go Internal Packages
	"context"
	"time"

	// Local Packages
	kafka "pix-stream/kafka"
	models "pix-stream/models"
	deadletter "pix-stream/services/deadletter"
	deposits "pix-stream/services/deposits"
	devolutions "pix-stream/services/devolutions"
	frauds "pix-stream/services/frauds"
	infractions "pix-stream/services/infractions"
	notifications "pix-stream/services/notifications"
	payments "pix-stream/services/payments"
	refunds "pix-stream/services/refunds"
	transitions "pix-stream/services/transitions"
	warning "pix-stream/services/warning"
)

// Services are the use cases the observers drive.
type Services struct {
	Payments    *payments.Service
	Deposits    *deposits.Service
	Devolutions *devolutions.Service
	Infractions *infractions.Service
	Refunds     *refunds.Service
	Frauds      *frauds.Service
	Warning     *warning.Service
	Rules       []warning.Evaluator
	Recorder    *notifications.Recorder
	Hub         notifications.Processor
	Failed      deadletter.FailedStore
	Emitter     deadletter.Emitter
	Now         func() time.Time
}

// Registrations lists every observer of the service.
func (o *Observer) Registrations(s Services) []Registration {
	var regs []Registration
	regs = append(regs, o.payments(s)...)
	regs = append(regs, o.deposits(s)...)
	regs = append(regs, o.devolutions(s)...)
	regs = append(regs, o.infractions(s)...)
	regs = append(regs, o.refunds(s)...)
	regs = append(regs, o.frauds(s)...)
	regs = append(regs, o.warnings(s)...)
	regs = append(regs, o.notifications(s)...)
	return regs
}

// family collects the observers of one entity family, all escalating to the
// family's dead-letter topic.
type family struct {
	o      *Observer
	entity string
	regs   []Registration
}

func (o *Observer) family(entity string) *family {
	return &family{o: o, entity: entity}
}

func (f *family) on(name string, topic string, h kafka.HandlerFunc) *family {
	f.regs = append(f.regs, Registration{
		Name:    f.entity + "." + name,
		Topics:  []string{topic},
		Handler: f.o.WithDeadLetter(models.DeadLetterTopic(f.entity), h),
	})
	return f
}

// command binds the inbound command topic of op.
func (f *family) command(op string, h kafka.HandlerFunc) *family {
	return f.on(op, models.CommandTopic(f.entity, op), h)
}

// after binds a step to the event of the family reaching state.
func (f *family) after(name string, state models.State, h kafka.HandlerFunc) *family {
	return f.on(name, models.EventTopic(f.entity, state), h)
}

func (f *family) deadLetter(s Services, failer deadletter.Failer, resolve deadletter.Resolver) []Registration {
	h := deadletter.New(f.entity, s.Failed, failer, resolve, s.Emitter, s.Now, f.o.logger)
	return append(f.regs, Registration{
		Name:    f.entity + ".dead-letter",
		Topics:  []string{models.DeadLetterTopic(f.entity)},
		Handler: f.o.Terminal(h.Handle),
	})
}

func byRef[T models.Entity](store transitions.Store[T]) deadletter.Resolver {
	return deadletter.ByIDOrExternalID(func(ctx context.Context, externalID string) (string, error) {
		var zero T
		e, err := store.GetByExternalID(ctx, externalID)
		if err != nil || any(e) == any(zero) {
			return "", err
		}
		return e.EntityID(), nil
	})
}

// command adapts an EntityCommand use case.
func command[R any](fn func(ctx context.Context, requestID string, cmd models.EntityCommand) (R, error)) kafka.HandlerFunc {
	return Handle(fn)
}

func (o *Observer) payments(s Services) []Registration {
	svc := s.Payments
	return o.family(models.EntityPayment).
		command(models.OpRegister, Handle(svc.Register)).
		after(models.OpSend, models.PaymentPending, HandleEvent(svc.Send)).
		command(models.OpConfirm, command(svc.Confirm)).
		command(models.OpComplete, command(svc.Complete)).
		command(models.OpRevert, command(svc.Revert)).
		command(models.OpCancel, command(svc.Cancel)).
		deadLetter(s, svc.Engine(), byRef(svc.Engine().Store()))
}

func (o *Observer) deposits(s Services) []Registration {
	svc := s.Deposits
	f := o.family(models.EntityDeposit).
		command(models.OpConfirm, command(svc.Confirm))
	for _, rule := range s.Rules {
		f.after("screen."+rule.Name(), models.DepositPending, HandleEvent(func(ctx context.Context, requestID, id string) (*models.WarningDeposit, error) {
			return s.Warning.Screen(ctx, requestID, id, rule)
		}))
	}
	return f.deadLetter(s, svc.Engine(), byRef(svc.Engine().Store()))
}

func (o *Observer) devolutions(s Services) []Registration {
	svc := s.Devolutions
	return o.family(models.EntityDevolution).
		command(models.OpCreate, Handle(svc.Create)).
		after(models.OpSend, models.DevolutionPending, HandleEvent(svc.Send)).
		deadLetter(s, svc.Engine(), byRef(svc.Engine().Store()))
}

func (o *Observer) infractions(s Services) []Registration {
	svc := s.Infractions
	f := o.family(models.EntityInfraction).
		command(models.OpReceive, Handle(svc.Receive)).
		after("accept", models.InfractionReceivePending, HandleEvent(svc.Accept)).
		command(models.OpCreate, Handle(svc.Create)).
		command(models.OpAnalyze, command(svc.Analyze))
	for _, op := range infractions.Ops {
		f.command(op, command(func(ctx context.Context, requestID string, cmd models.EntityCommand) (*models.Infraction, error) {
			return svc.Request(ctx, requestID, op, cmd)
		}))
		f.after(op+".confirm", infractions.PendingState(op), HandleEvent(func(ctx context.Context, requestID, id string) (*models.Infraction, error) {
			return svc.Confirm(ctx, requestID, op, models.EntityCommand{ID: id})
		}))
	}
	return f.deadLetter(s, svc.Engine(), byRef(svc.Engine().Store()))
}

func (o *Observer) refunds(s Services) []Registration {
	svc := s.Refunds
	confirm := HandleEvent(func(ctx context.Context, requestID, id string) (*models.Refund, error) {
		return svc.Confirm(ctx, requestID, models.EntityCommand{ID: id})
	})
	return o.family(models.EntityRefund).
		command(models.OpReceive, Handle(svc.Receive)).
		after("accept", models.RefundReceivePending, HandleEvent(svc.Accept)).
		command(models.OpClose, command(svc.Close)).
		command(models.OpCancel, command(svc.Cancel)).
		after("close.confirm", models.RefundClosedPending, confirm).
		after("cancel.confirm", models.RefundCancelPending, confirm).
		deadLetter(s, svc.Engine(), byRef(svc.Engine().Store()))
}

func (o *Observer) frauds(s Services) []Registration {
	svc := s.Frauds
	return o.family(models.EntityFraudDetection).
		command(models.OpRegister, Handle(svc.Register)).
		after("register.confirm", models.FraudRegisterPending, HandleEvent(svc.ConfirmRegister)).
		command(models.OpCancel, command(svc.Cancel)).
		after("cancel.confirm", models.FraudCancelPending, HandleEvent(svc.ConfirmCancel)).
		deadLetter(s, svc.Engine(), byRef(svc.Engine().Store()))
}

func (o *Observer) warnings(s Services) []Registration {
	svc := s.Warning
	regs := o.family(models.EntityWarningDeposit).
		command(models.OpApprove, command(svc.Approve)).
		command(models.OpReject, command(svc.Reject)).
		deadLetter(s, svc.Warnings(), deadletter.ByID)
	return append(regs, o.family(models.EntityWarningDevolution).
		after(models.OpSend, models.WarningDevolutionPending, HandleEvent(svc.SendDevolution)).
		deadLetter(s, svc.Devolutions(), byRef(svc.Devolutions().Store()))...)
}

// notifications binds, per family, the ingress forwarder, the selected hub
// processor and the hub dead-letter handler.
func (o *Observer) notifications(s Services) []Registration {
	handlers := s.Hub.Handlers()
	var regs []Registration
	for _, fam := range models.NotifyFamilies {
		h := handlers[fam]
		dl := deadletter.New(models.EntityNotification, s.Failed, s.Recorder.Engine(), deadletter.ByNotification(fam), s.Emitter, s.Now, o.logger)
		regs = append(regs,
			Registration{
				Name:    "notify." + fam,
				Topics:  []string{models.NotifyTopic(fam)},
				Handler: o.Forward(models.HubTopic(fam)),
			},
			Registration{
				Name:   "hub." + fam + "." + s.Hub.Name(),
				Topics: []string{models.HubTopic(fam)},
				Handler: o.WithDeadLetter(models.HubDeadLetterTopic(fam), func(ctx context.Context, msg models.Message) error {
					return h(ctx, msg.RequestID(), msg.Value)
				}),
			},
			Registration{
				Name:    "hub." + fam + ".dead-letter",
				Topics:  []string{models.HubDeadLetterTopic(fam)},
				Handler: o.Terminal(dl.Handle),
			},
		)
	}
	return regs
}
