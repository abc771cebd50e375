package patterns

import (
	"regexp"
	"strings"

	"code-intel/internal/types"
)

var (
	singletonAttributes = []string{"_instance", "__instance", "_singleton", "instance"}
	singletonAccessors  = []string{"get_instance", "getInstance", "instance"}

	factoryKeywords = []string{"create", "make", "build", "factory"}
	// returnsInstance `return ClassName(` 형태
	returnsInstance = regexp.MustCompile(`return\s+[A-Z]\w+\(`)

	observerAttributes = []string{"observers", "subscribers", "listeners", "_observers", "_listeners", "_subscribers"}
	notifyKeywords     = []string{"notify", "publish", "emit", "trigger"}
	subscribeKeywords  = []string{"subscribe", "attach", "register", "add_observer", "add_listener"}

	wrappedAttributes = []string{"_wrapped", "_component", "_inner", "wrapped", "component"}
)

// SingletonDetector 싱글톤 패턴
type SingletonDetector struct{ base }

func NewSingletonDetector() *SingletonDetector {
	return &SingletonDetector{base{
		name:        "Singleton",
		kind:        types.KindDesignPattern,
		description: "Singleton design pattern",
	}}
}

func (d *SingletonDetector) Detect(module *types.ModuleAnalysis, _ string) ([]types.Pattern, error) {
	var found []types.Pattern
	for _, cls := range module.Classes {
		hasAttr := false
		for _, attr := range cls.Attributes {
			if inSet(attr, singletonAttributes) {
				hasAttr = true
				break
			}
		}
		hasAccessor, hasNew := false, false
		for _, m := range cls.Methods {
			if inSet(m.Name, singletonAccessors) {
				hasAccessor = true
			}
			if m.Name == "__new__" {
				hasNew = true
			}
		}
		if !(hasAttr && hasAccessor) && !hasNew {
			continue
		}

		confidence, impl := 0.8, "instance_method"
		if hasNew {
			confidence, impl = 0.9, "new_method"
		}
		found = append(found, d.pattern(
			"Singleton design pattern ensures only one instance of the class exists",
			cls.Location, confidence, map[string]any{"implementation_type": impl}))
	}
	return found, nil
}

// FactoryDetector 팩토리 패턴
type FactoryDetector struct{ base }

func NewFactoryDetector() *FactoryDetector {
	return &FactoryDetector{base{
		name:        "Factory",
		kind:        types.KindDesignPattern,
		description: "Factory design pattern",
	}}
}

func (d *FactoryDetector) Detect(module *types.ModuleAnalysis, content string) ([]types.Pattern, error) {
	src := newSource(content)
	var found []types.Pattern
	for _, cls := range module.Classes {
		var names []string
		creates := false
		for _, m := range cls.Methods {
			if !containsAny(strings.ToLower(m.Name), factoryKeywords) {
				continue
			}
			names = append(names, m.Name)
			if body, ok := src.span(m.Location); ok && returnsInstance.MatchString(body) {
				creates = true
			}
		}
		if len(names) == 0 || !creates {
			continue
		}
		found = append(found, d.pattern(
			"Factory pattern provides interface for creating objects",
			cls.Location, 0.8, map[string]any{"factory_methods": names}))
	}
	return found, nil
}

// ObserverDetector 옵저버 패턴
type ObserverDetector struct{ base }

func NewObserverDetector() *ObserverDetector {
	return &ObserverDetector{base{
		name:        "Observer",
		kind:        types.KindDesignPattern,
		description: "Observer design pattern",
	}}
}

func (d *ObserverDetector) Detect(module *types.ModuleAnalysis, _ string) ([]types.Pattern, error) {
	var found []types.Pattern
	for _, cls := range module.Classes {
		hasList := false
		for _, attr := range cls.Attributes {
			if inSet(attr, observerAttributes) {
				hasList = true
				break
			}
		}
		hasNotify, hasSubscribe := false, false
		for _, m := range cls.Methods {
			name := strings.ToLower(m.Name)
			hasNotify = hasNotify || containsAny(name, notifyKeywords)
			hasSubscribe = hasSubscribe || containsAny(name, subscribeKeywords)
		}
		if !hasList || !hasNotify || !hasSubscribe {
			continue
		}
		found = append(found, d.pattern(
			"Observer pattern defines one-to-many dependency between objects",
			cls.Location, 0.9, map[string]any{
				"has_observers_list":   true,
				"has_notify_method":    true,
				"has_subscribe_method": true,
			}))
	}
	return found, nil
}

// StrategyDetector 전략 패턴. 추상 기반 클래스, 구현 2개 이상, 사용하는 컨텍스트 클래스가 모두 필요하다.
type StrategyDetector struct{ base }

func NewStrategyDetector() *StrategyDetector {
	return &StrategyDetector{base{
		name:        "Strategy",
		kind:        types.KindDesignPattern,
		description: "Strategy design pattern",
	}}
}

func (d *StrategyDetector) Detect(module *types.ModuleAnalysis, content string) ([]types.Pattern, error) {
	src := newSource(content)
	var found []types.Pattern
	for i, cls := range module.Classes {
		if !isAbstract(cls, src) {
			continue
		}

		var impls []string
		implSet := map[int]bool{}
		for j, other := range module.Classes {
			if j != i && inSet(cls.Name, other.ParentClasses) {
				impls = append(impls, other.Name)
				implSet[j] = true
			}
		}
		if len(impls) < 2 {
			continue
		}

		ctxClass, ok := findContextClass(cls, i, implSet, module.Classes, src)
		if !ok {
			continue
		}
		found = append(found, d.pattern(
			"Strategy pattern allows selecting algorithm at runtime",
			cls.Location, 0.85, map[string]any{
				"interface":       cls.Name,
				"implementations": impls,
				"context_class":   ctxClass,
			}))
	}
	return found, nil
}

func isAbstract(cls types.ClassRecord, src source) bool {
	if inSet("ABC", cls.ParentClasses) || inSet("abc.ABC", cls.ParentClasses) {
		return true
	}
	if body, ok := src.span(cls.Location); ok && strings.Contains(body, "@abstractmethod") {
		return true
	}
	for _, m := range cls.Methods {
		if body, ok := src.span(m.Location); ok && strings.Contains(body, "NotImplementedError") {
			return true
		}
	}
	return false
}

// findContextClass 전략 타입을 속성으로 갖거나 메소드에서 참조하는 클래스 (구현체 제외)
func findContextClass(strategy types.ClassRecord, self int, impls map[int]bool, classes []types.ClassRecord, src source) (string, bool) {
	lowered := strings.ToLower(strategy.Name)
	for j, cls := range classes {
		if j == self || impls[j] {
			continue
		}
		for _, attr := range cls.Attributes {
			if strings.Contains(strings.ToLower(attr), lowered) {
				return cls.Name, true
			}
		}
		for _, m := range cls.Methods {
			if body, ok := src.span(m.Location); ok && strings.Contains(body, strategy.Name) {
				return cls.Name, true
			}
		}
	}
	return "", false
}

// DecoratorDetector 함수 데코레이터와 구조적 데코레이터 패턴
type DecoratorDetector struct{ base }

func NewDecoratorDetector() *DecoratorDetector {
	return &DecoratorDetector{base{
		name:        "Decorator",
		kind:        types.KindDesignPattern,
		description: "Decorator design pattern",
	}}
}

func (d *DecoratorDetector) Detect(module *types.ModuleAnalysis, _ string) ([]types.Pattern, error) {
	var found []types.Pattern
	for _, fn := range module.Functions {
		if len(fn.Decorators) == 0 {
			continue
		}
		found = append(found, d.pattern("Function decorator pattern", fn.Location, 0.95, map[string]any{
			"decorated_function": fn.Name,
			"type":               "function_decorator",
			"decorators":         fn.Decorators,
		}))
	}

	for i, cls := range module.Classes {
		if !isStructuralDecorator(i, module.Classes) {
			continue
		}
		found = append(found, d.pattern("Structural decorator pattern", cls.Location, 0.8, map[string]any{
			"decorator_class": cls.Name,
			"type":            "structural_decorator",
		}))
	}
	return found, nil
}

// isStructuralDecorator 감싼 객체 속성이 있고 다른 클래스와 부모를 공유
func isStructuralDecorator(i int, classes []types.ClassRecord) bool {
	cls := classes[i]
	if len(cls.ParentClasses) == 0 {
		return false
	}
	wraps := false
	for _, attr := range cls.Attributes {
		if inSet(attr, wrappedAttributes) {
			wraps = true
			break
		}
	}
	if !wraps {
		return false
	}
	for j, other := range classes {
		if j == i {
			continue
		}
		for _, parent := range cls.ParentClasses {
			if inSet(parent, other.ParentClasses) {
				return true
			}
		}
	}
	return false
}
